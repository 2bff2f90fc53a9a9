package workrecords

import (
	"context"
	"net/url"
	"strings"
	"time"

	"optimahub/internal/gateway"
	"optimahub/internal/query"
)

var (
	KeyOwn = query.NewKey("workRecords")
	KeyHR  = query.NewKey("workRecords", "hr")
)

func EmployeeMonthKey(employeeID, month string) query.Key {
	return query.NewKey("workRecords", employeeID, month)
}

type Service struct {
	api   gateway.API
	cache *query.Cache
}

func NewService(api gateway.API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns the signed-in employee's own records.
func (s *Service) List(ctx context.Context) ([]Record, error) {
	return s.fetch(ctx, KeyOwn, "/work-records", nil)
}

// ListForHR returns every employee's records for client-side filtering.
func (s *Service) ListForHR(ctx context.Context) ([]Record, error) {
	return s.fetch(ctx, KeyHR, "/hr/work-records", nil)
}

// Filtered applies f to the HR list.
func (s *Service) Filtered(ctx context.Context, f Filter) ([]Record, error) {
	records, err := s.ListForHR(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(records, f), nil
}

// FetchEmployeeMonth loads one employee's records for month from the backend.
// The month is also applied locally in case the backend ignores the parameter.
func (s *Service) FetchEmployeeMonth(ctx context.Context, employeeID, month string) (EmployeeMonth, error) {
	params := url.Values{"employeeId": {employeeID}}
	if month != "" {
		params.Set("month", month)
	}
	records, err := s.fetch(ctx, EmployeeMonthKey(employeeID, month), "/hr/work-records", params)
	if err != nil {
		return EmployeeMonth{}, err
	}
	records = Apply(records, Filter{EmployeeID: employeeID, Month: month})
	return EmployeeMonth{
		EmployeeID: employeeID,
		Month:      month,
		Records:    records,
		TotalHours: TotalHours(records),
		Chart:      Chart(records),
	}, nil
}

// EmployeeMonthView loads through obs so a slower earlier month never replaces a later one.
func (s *Service) EmployeeMonthView(ctx context.Context, obs *query.Observer[EmployeeMonth], employeeID, month string) (query.Snapshot[EmployeeMonth], error) {
	return obs.Load(ctx, EmployeeMonthKey(employeeID, month), func(ctx context.Context) (EmployeeMonth, error) {
		return s.FetchEmployeeMonth(ctx, employeeID, month)
	})
}

func (s *Service) fetch(ctx context.Context, key query.Key, path string, params url.Values) ([]Record, error) {
	return query.Get(ctx, s.cache, key, func(ctx context.Context) ([]Record, error) {
		var out []Record
		if err := s.api.Do(ctx, gateway.Get(path, params), &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []Record{}
		}
		return out, nil
	})
}

// CreateFromForm validates raw form values and creates the record. Invalid input never
// reaches the backend.
func (s *Service) CreateFromForm(ctx context.Context, task, hours, date string) (Draft, error) {
	d, err := NewDraft(task, hours, date, time.Now())
	if err != nil {
		return Draft{}, err
	}
	return d, s.Create(ctx, d)
}

func (s *Service) Create(ctx context.Context, d Draft) error {
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Do(ctx, gateway.Post("/work-records", d), nil)
	}, KeyOwn)
	return err
}

// UpdateFromForm validates raw form values and replaces one of the employee's own records.
// An omitted date keeps the record's current date.
func (s *Service) UpdateFromForm(ctx context.Context, id, task, hours, date string) (Draft, error) {
	parsedTask, err := ParseTask(task)
	if err != nil {
		return Draft{}, err
	}
	parsedHours, err := ParseHours(hours)
	if err != nil {
		return Draft{}, err
	}
	var parsedDate time.Time
	if strings.TrimSpace(date) != "" {
		if parsedDate, err = ParseDate(date, time.Time{}); err != nil {
			return Draft{}, err
		}
	}
	current, err := s.own(ctx, id)
	if err != nil {
		return Draft{}, err
	}
	if parsedDate.IsZero() {
		parsedDate = current.Date
	}
	d := Draft{Task: parsedTask, HoursWorked: parsedHours, Date: parsedDate}
	return d, s.Update(ctx, id, d)
}

// Update replaces one of the employee's own records.
func (s *Service) Update(ctx context.Context, id string, d Draft) error {
	if _, err := s.own(ctx, id); err != nil {
		return err
	}
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Do(ctx, gateway.Put("/work-records/"+url.PathEscape(id), d), nil)
	}, KeyOwn)
	return err
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.own(ctx, id); err != nil {
		return err
	}
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Do(ctx, gateway.Delete("/work-records/"+url.PathEscape(id)), nil)
	}, KeyOwn)
	return err
}

// own returns the record with id from the employee's own list.
func (s *Service) own(ctx context.Context, id string) (Record, error) {
	records, err := s.List(ctx)
	if err != nil {
		return Record{}, err
	}
	for _, r := range records {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotOwnRecord
}
