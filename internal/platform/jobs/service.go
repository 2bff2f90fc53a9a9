package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const (
	JobSessionSweep     = "session_sweep"
	JobIdempotencyPrune = "idempotency_prune"

	maxRuns = 50
)

// Run records one completed job execution.
type Run struct {
	Type        string    `json:"type"`
	Status      string    `json:"status"`
	Details     any       `json:"details,omitempty"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"startedAt"`
	CompletedAt time.Time `json:"completedAt"`
}

type job struct {
	Type string
	Run  func(context.Context) (any, error)
}

type schedule struct {
	Type     string
	Interval time.Duration
	Run      func(context.Context) (any, error)
}

// Service runs background jobs on a single worker, either queued on demand or on a fixed interval.
type Service struct {
	queue     chan job
	schedules []schedule

	mu   sync.Mutex
	runs []Run
}

func New() *Service {
	return &Service{queue: make(chan job, 128)}
}

// Every registers a job to be enqueued each interval once Start is called.
func (s *Service) Every(jobType string, interval time.Duration, run func(context.Context) (any, error)) {
	if interval <= 0 {
		return
	}
	s.schedules = append(s.schedules, schedule{Type: jobType, Interval: interval, Run: run})
}

func (s *Service) Start(ctx context.Context) {
	go s.worker(ctx)
	for _, sch := range s.schedules {
		go s.schedule(ctx, sch)
	}
}

func (s *Service) Enqueue(jobType string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		slog.Warn("job queue full", "jobType", jobType)
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

// Runs returns the most recent runs, newest last.
func (s *Service) Runs() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, len(s.runs))
	copy(out, s.runs)
	return out
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	run := Run{Type: j.Type, Status: "completed", StartedAt: time.Now()}
	details, err := j.Run(ctx)
	run.Details = details
	run.CompletedAt = time.Now()
	if err != nil {
		run.Status = "failed"
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.runs = append(s.runs, run)
	if len(s.runs) > maxRuns {
		s.runs = append([]Run(nil), s.runs[len(s.runs)-maxRuns:]...)
	}
	s.mu.Unlock()

	slog.Debug("job run finished", "jobType", j.Type, "status", run.Status, "durationMs", run.CompletedAt.Sub(run.StartedAt).Milliseconds())
	return details, err
}

func (s *Service) schedule(ctx context.Context, sch schedule) {
	ticker := time.NewTicker(sch.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(sch.Type, sch.Run)
		}
	}
}
