package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"optimahub/internal/platform/db"
)

const (
	ActionVerifyToggled  = "employee.verify_toggled"
	ActionFired          = "employee.fired"
	ActionReinstated     = "employee.reinstated"
	ActionRoleChanged    = "employee.role_changed"
	ActionSalaryRaised   = "employee.salary_raised"
	ActionPayrollFiled   = "payroll.request_filed"
	ActionPaymentCharged = "payroll.payment_charged"
)

const (
	EntityEmployee       = "employee"
	EntityPayrollRequest = "payroll_request"
)

// memoryLimit bounds the in-process trail kept when no database is configured.
const memoryLimit = 1000

// Event is one privileged action taken through the front server.
type Event struct {
	ID         int64           `json:"id"`
	Actor      string          `json:"actor"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	Detail     json.RawMessage `json:"detail,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Filter narrows the trail. Since is inclusive and Until exclusive; zero values match all.
type Filter struct {
	Action     string
	EntityType string
	Actor      string
	Since      time.Time
	Until      time.Time
}

func (f Filter) match(evt Event) bool {
	if f.Action != "" && evt.Action != f.Action {
		return false
	}
	if f.EntityType != "" && evt.EntityType != f.EntityType {
		return false
	}
	if f.Actor != "" && !strings.EqualFold(evt.Actor, f.Actor) {
		return false
	}
	if !f.Since.IsZero() && evt.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !evt.CreatedAt.Before(f.Until) {
		return false
	}
	return true
}

type Service struct {
	db db.Queryer

	mu     sync.Mutex
	seq    int64
	memory []Event
	now    func() time.Time
}

// New returns a trail backed by q, or an in-memory trail when q is nil.
func New(q db.Queryer) *Service {
	return &Service{db: q, now: time.Now}
}

// Record appends evt. detail is stored as JSON when not nil.
func (s *Service) Record(ctx context.Context, evt Event, detail any) error {
	if s == nil {
		return nil
	}
	if detail != nil {
		payload, err := json.Marshal(detail)
		if err != nil {
			return err
		}
		evt.Detail = payload
	}
	slog.Info("audit", "actor", evt.Actor, "action", evt.Action, "entityType", evt.EntityType, "entityId", evt.EntityID, "requestId", evt.RequestID)

	if s.db == nil {
		s.mu.Lock()
		s.seq++
		evt.ID = s.seq
		evt.CreatedAt = s.now().UTC()
		s.memory = append(s.memory, evt)
		if len(s.memory) > memoryLimit {
			s.memory = s.memory[len(s.memory)-memoryLimit:]
		}
		s.mu.Unlock()
		return nil
	}

	_, err := s.db.Exec(ctx, `
    INSERT INTO audit_events (actor, action, entity_type, entity_id, request_id, ip, detail_json)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, evt.Actor, evt.Action, evt.EntityType, evt.EntityID, evt.RequestID, evt.IP, []byte(evt.Detail))
	return err
}

func (s *Service) Count(ctx context.Context, filter Filter) (int, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		n := 0
		for _, evt := range s.memory {
			if filter.match(evt) {
				n++
			}
		}
		return n, nil
	}
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// List returns events newest first. A limit of zero or less returns every match.
func (s *Service) List(ctx context.Context, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	if s.db == nil {
		return s.listMemory(filter, includeDetails, limit, offset), nil
	}

	selectCols := "id, actor, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		selectCols += ", detail_json"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, filter)
	query += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, limit, offset)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.Actor, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includeDetails {
			dest = append(dest, &evt.Detail)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Service) listMemory(filter Filter, includeDetails bool, limit, offset int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Event{}
	for i := len(s.memory) - 1; i >= 0; i-- {
		evt := s.memory[i]
		if !filter.match(evt) {
			continue
		}
		if !includeDetails {
			evt.Detail = nil
		}
		out = append(out, evt)
	}
	if offset >= len(out) {
		return []Event{}
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	query := prefix + " FROM audit_events WHERE 1=1"
	var args []any
	if filter.Action != "" {
		args = append(args, filter.Action)
		query += fmt.Sprintf(" AND action = $%d", len(args))
	}
	if filter.EntityType != "" {
		args = append(args, filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.Actor != "" {
		args = append(args, strings.ToLower(filter.Actor))
		query += fmt.Sprintf(" AND lower(actor) = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	return query, args
}
