package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"optimahub/internal/domain/audit"
	"optimahub/internal/gateway"
	"optimahub/internal/platform/config"
	"optimahub/internal/platform/crypto"
	"optimahub/internal/platform/db"
	"optimahub/internal/platform/imagehost"
	"optimahub/internal/platform/jobs"
	"optimahub/internal/platform/metrics"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
	audithandler "optimahub/internal/transport/http/handlers/audit"
	authhandler "optimahub/internal/transport/http/handlers/auth"
	confighandler "optimahub/internal/transport/http/handlers/config"
	contacthandler "optimahub/internal/transport/http/handlers/contact"
	dashboardhandler "optimahub/internal/transport/http/handlers/dashboard"
	employeeshandler "optimahub/internal/transport/http/handlers/employees"
	payrollhandler "optimahub/internal/transport/http/handlers/payroll"
	workrecordshandler "optimahub/internal/transport/http/handlers/workrecords"
	"optimahub/internal/transport/http/middleware"
)

type App struct {
	Config   config.Config
	DB       *pgxpool.Pool
	Router   http.Handler
	Sessions *session.Manager
	Jobs     *jobs.Service
	Metrics  *metrics.Collector
}

// New wires the front server. A database is optional: without DATABASE_URL sessions and
// idempotency keys live in memory only.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		var err error
		pool, err = db.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		if cfg.RunMigrations {
			if err := db.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, fmt.Errorf("migrations: %w", err)
			}
		}
	}

	sealer, err := crypto.New(cfg.SessionSecret)
	if err != nil {
		closePool(pool)
		return nil, fmt.Errorf("session sealer: %w", err)
	}
	if !sealer.Configured() {
		slog.Warn("SESSION_SECRET not set, persisted credentials are stored unsealed")
	}

	var store session.Store = session.NewMemoryStore()
	idempotency := middleware.NewIdempotencyStore(nil)
	trail := audit.New(nil)
	if pool != nil {
		store = session.NewPostgresStore(pool, sealer)
		idempotency = middleware.NewIdempotencyStore(pool)
		trail = audit.New(pool)
	}

	collector := metrics.New()
	var sessions *session.Manager
	client := gateway.New(cfg.APIBaseURL,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithMetrics(collector),
		gateway.WithUnauthorizedHook(func(ctx context.Context) {
			sessions.HandleUnauthorized(ctx)
		}),
	)
	sessions = session.NewManager(client, store, session.ManagerConfig{
		TTL:       cfg.SessionTTL,
		StaleTime: cfg.QueryStaleTime,
	})

	jobService := jobs.New()
	jobService.Every(jobs.JobSessionSweep, cfg.SessionSweepInterval, func(ctx context.Context) (any, error) {
		return sessions.Sweep(ctx)
	})
	jobService.Every(jobs.JobIdempotencyPrune, cfg.SessionSweepInterval, func(ctx context.Context) (any, error) {
		return idempotency.Prune(ctx)
	})

	images := imagehost.New(cfg.ImageHostURL, cfg.ImageHostAPIKey, cfg.RequestTimeout)
	cookies := middleware.CookieOptions{Secure: cfg.CookieSecure, MaxAge: cfg.SessionTTL}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(collector))
	router.Use(middleware.Recoverer)
	router.Use(middleware.SecureHeaders(cfg.IsProduction()))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if pool == nil {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if cfg.MetricsEnabled {
		router.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
			snapshot := collector.Snapshot()
			snapshot["liveSessions"] = sessions.Len()
			snapshot["jobRuns"] = jobService.Runs()
			api.Success(w, snapshot, middleware.GetRequestID(r.Context()))
		})
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		r.Use(middleware.RateLimit(cfg.RateLimitPerMinute, time.Minute))
		r.Use(middleware.Session(sessions))
		r.Use(middleware.SensitiveMutationRateLimit(cfg.RateLimitPerMinute, time.Minute))

		confighandler.NewHandler(cfg.PaymentPublicKey, images.Configured()).RegisterRoutes(r)
		authhandler.NewHandler(sessions, images, cookies).RegisterRoutes(r)
		dashboardhandler.NewHandler().RegisterRoutes(r)
		employeeshandler.NewHandler(trail).RegisterRoutes(r)
		workrecordshandler.NewHandler().RegisterRoutes(r)
		payrollhandler.NewHandler(idempotency, trail).RegisterRoutes(r)
		audithandler.NewHandler(trail).RegisterRoutes(r)
		contacthandler.NewHandler().RegisterRoutes(r)
	})

	router.Mount("/", spaHandler{staticPath: cfg.FrontendDir, indexPath: "index.html"})

	return &App{
		Config:   cfg,
		DB:       pool,
		Router:   router,
		Sessions: sessions,
		Jobs:     jobService,
		Metrics:  collector,
	}, nil
}

func (a *App) Close() {
	closePool(a.DB)
}

func closePool(pool *pgxpool.Pool) {
	if pool != nil {
		pool.Close()
	}
}

func Run() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := New(ctx, cfg)
	if err != nil {
		slog.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer app.Close()
	app.Jobs.Start(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown failed", "err", err)
		}
	}()

	slog.Info("OptimaHub front server listening", "addr", cfg.Addr, "backend", cfg.APIBaseURL, "persistentSessions", app.DB != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "err", err)
		os.Exit(1)
	}
}

type spaHandler struct {
	staticPath string
	indexPath  string
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	path := filepath.Join(h.staticPath, filepath.Clean("/"+r.URL.Path))
	_, err := os.Stat(path)
	if err == nil {
		http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
		return
	}

	if os.IsNotExist(err) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	http.NotFound(w, r)
}
