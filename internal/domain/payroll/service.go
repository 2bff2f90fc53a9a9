package payroll

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/period"
	"optimahub/internal/gateway"
	"optimahub/internal/query"
)

var (
	KeyRequests = query.NewKey("payrollRequests")
	KeyHistory  = query.NewKey("paymentHistory")
)

func HistoryKey(page, limit int) query.Key {
	return query.NewKey("paymentHistory", strconv.Itoa(page), strconv.Itoa(limit))
}

// Guard serializes submissions that share a key within one session.
type Guard interface {
	Acquire(key string) bool
	Release(key string)
}

type Service struct {
	api   gateway.API
	cache *query.Cache
	guard Guard
}

func NewService(api gateway.API, cache *query.Cache, guard Guard) *Service {
	return &Service{api: api, cache: cache, guard: guard}
}

func (s *Service) Requests(ctx context.Context) ([]Request, error) {
	return query.Get(ctx, s.cache, KeyRequests, func(ctx context.Context) ([]Request, error) {
		var out []Request
		if err := s.api.Do(ctx, gateway.Get("/payroll-requests", nil), &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []Request{}
		}
		return out, nil
	})
}

// Pending returns the requests still awaiting payment.
func (s *Service) Pending(ctx context.Context) ([]Request, error) {
	all, err := s.Requests(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Request, 0, len(all))
	for _, r := range all {
		if r.Status != StatusPaid {
			out = append(out, r)
		}
	}
	return out, nil
}

// NormalizeDraft validates the period of d and fills in the employee's salary when none is given.
func NormalizeDraft(d Draft, employee employees.Employee) (Draft, error) {
	month, err := period.ParseMonth(d.Month)
	if err != nil {
		return Draft{}, err
	}
	if d.Year < 1000 || d.Year > 9999 {
		return Draft{}, period.ErrInvalidYear
	}
	if d.Salary.IsZero() {
		d.Salary = employee.Salary
	}
	if !d.Salary.IsPositive() {
		return Draft{}, ErrInvalidAmount
	}
	d.EmployeeID = employee.ID
	d.Month = month
	return d, nil
}

// CreateRequest files a payment request for a verified employee. Existing requests for the
// same employee and period are looked up in the cached request list; the backend does not
// enforce uniqueness.
func (s *Service) CreateRequest(ctx context.Context, employee employees.Employee, d Draft) (Draft, error) {
	if !employee.CanRequestPayment() {
		return Draft{}, ErrEmployeeNotVerified
	}
	d, err := NormalizeDraft(d, employee)
	if err != nil {
		return Draft{}, err
	}

	existing, err := s.Requests(ctx)
	switch {
	case errors.Is(err, gateway.ErrForbidden):
		slog.Debug("payroll request list not readable, skipping duplicate check", "employeeId", d.EmployeeID)
	case err != nil:
		return Draft{}, err
	default:
		for _, r := range existing {
			if r.Matches(d.EmployeeID, d.Month, d.Year) {
				return Draft{}, ErrDuplicateRequest
			}
		}
	}

	_, err = query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		body := map[string]any{
			"employeeId": d.EmployeeID,
			"month":      d.Month,
			"year":       d.Year,
			"salary":     json.Number(d.Salary.String()),
		}
		return struct{}{}, s.api.Do(ctx, gateway.Post("/payroll", body), nil)
	}, query.NewKey("employees"), KeyRequests)
	if err != nil {
		return Draft{}, err
	}
	return d, nil
}

// Pay forwards a payment token for a pending request. A second submission for the same
// request while the first is outstanding is rejected.
func (s *Service) Pay(ctx context.Context, p Payment) (Receipt, error) {
	if strings.TrimSpace(p.Token) == "" {
		return Receipt{}, ErrMissingPaymentToken
	}
	month, err := period.ParseMonth(p.Month)
	if err != nil {
		return Receipt{}, err
	}
	p.Month = month

	requests, err := s.Requests(ctx)
	if err != nil {
		return Receipt{}, err
	}
	var target *Request
	for i := range requests {
		if requests[i].Matches(p.EmployeeID, p.Month, p.Year) {
			target = &requests[i]
			break
		}
	}
	if target == nil {
		return Receipt{}, ErrRequestNotFound
	}
	if target.Status == StatusPaid {
		return Receipt{}, ErrAlreadyPaid
	}
	if p.Salary.IsZero() {
		p.Salary = target.Salary
	}

	key := "payroll-payment:" + p.EmployeeID + ":" + p.Month + ":" + p.Year.String()
	if s.guard != nil {
		if !s.guard.Acquire(key) {
			return Receipt{}, ErrPaymentInFlight
		}
		defer s.guard.Release(key)
	}

	body := map[string]any{
		"employeeId":     p.EmployeeID,
		"salary":         json.Number(p.Salary.String()),
		"month":          p.Month,
		"year":           p.Year,
		"paymentDetails": map[string]string{"token": p.Token},
	}
	return query.Mutate(ctx, s.cache, func(ctx context.Context) (Receipt, error) {
		var out Receipt
		if err := s.api.Do(ctx, gateway.Post("/payroll-payment", body), &out); err != nil {
			return Receipt{}, fmt.Errorf("payroll payment: %w", err)
		}
		return out, nil
	}, KeyRequests, KeyHistory)
}

// History returns one page of the employee's own payment history.
func (s *Service) History(ctx context.Context, page, limit int) (HistoryPage, error) {
	page, limit = clampPage(page, limit)
	return query.Get(ctx, s.cache, HistoryKey(page, limit), func(ctx context.Context) (HistoryPage, error) {
		return s.fetchHistory(ctx, page, limit)
	})
}

// HistoryView loads a page through obs, keeping the previous page visible while the next loads.
func (s *Service) HistoryView(ctx context.Context, obs *query.Observer[HistoryPage], page, limit int) (query.Snapshot[HistoryPage], error) {
	page, limit = clampPage(page, limit)
	return obs.Load(ctx, HistoryKey(page, limit), func(ctx context.Context) (HistoryPage, error) {
		return s.fetchHistory(ctx, page, limit)
	})
}

func (s *Service) fetchHistory(ctx context.Context, page, limit int) (HistoryPage, error) {
	params := url.Values{"page": {strconv.Itoa(page)}, "limit": {strconv.Itoa(limit)}}
	var out HistoryPage
	if err := s.api.Do(ctx, gateway.Get("/payment-history", params), &out); err != nil {
		return HistoryPage{}, err
	}
	if out.Data == nil {
		out.Data = []HistoryRecord{}
	}
	if out.CurrentPage == 0 {
		out.CurrentPage = page
	}
	if out.TotalPages == 0 {
		out.TotalPages = 1
	}
	return out, nil
}

func clampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	return page, limit
}
