package employees

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/shopspring/decimal"

	"optimahub/internal/domain/auth"
	"optimahub/internal/gateway"
	"optimahub/internal/query"
)

var (
	KeyAll = query.NewKey("employees")
	KeyHR  = query.NewKey("employees", "hr")
)

func DetailsKey(id string) query.Key {
	return query.NewKey("employee", id)
}

type Service struct {
	api   gateway.API
	cache *query.Cache
}

func NewService(api gateway.API, cache *query.Cache) *Service {
	return &Service{api: api, cache: cache}
}

// List returns every employee (admin view).
func (s *Service) List(ctx context.Context) ([]Employee, error) {
	return s.list(ctx, KeyAll, "/employees")
}

// ListForHR returns the employees HR manages.
func (s *Service) ListForHR(ctx context.Context) ([]Employee, error) {
	return s.list(ctx, KeyHR, "/hr/employees")
}

func (s *Service) list(ctx context.Context, key query.Key, path string) ([]Employee, error) {
	return query.Get(ctx, s.cache, key, func(ctx context.Context) ([]Employee, error) {
		var out []Employee
		if err := s.api.Do(ctx, gateway.Get(path, nil), &out); err != nil {
			return nil, err
		}
		if out == nil {
			out = []Employee{}
		}
		return out, nil
	})
}

func (s *Service) Details(ctx context.Context, id string) (Details, error) {
	return query.Get(ctx, s.cache, DetailsKey(id), func(ctx context.Context) (Details, error) {
		var out Details
		if err := s.api.Do(ctx, gateway.Get("/employees/"+url.PathEscape(id)+"/details", nil), &out); err != nil {
			if gateway.StatusOf(err) == 404 {
				return Details{}, fmt.Errorf("%w: %w", ErrEmployeeNotFound, err)
			}
			return Details{}, err
		}
		if out.SalaryRecords == nil {
			out.SalaryRecords = []SalaryRecord{}
		}
		return out, nil
	})
}

// Find returns the employee with id from list.
func Find(list []Employee, id string) (Employee, bool) {
	for _, e := range list {
		if e.ID == id {
			return e, true
		}
	}
	return Employee{}, false
}

func (s *Service) ToggleVerify(ctx context.Context, id string) error {
	return s.patch(ctx, id, "toggle-verify", nil)
}

// SetFired fires (true) or reinstates (false) an employee.
func (s *Service) SetFired(ctx context.Context, id string, fired bool) error {
	return s.patch(ctx, id, "fire", map[string]bool{"isFired": fired})
}

func (s *Service) ChangeRole(ctx context.Context, id, role string) error {
	parsed, ok := auth.ParseRole(role)
	if !ok {
		return ErrInvalidRole
	}
	return s.patch(ctx, id, "change-role", map[string]auth.Role{"role": parsed})
}

// UpdateSalary raises an employee's salary. Decreases and equal amounts are rejected
// without contacting the backend.
func (s *Service) UpdateSalary(ctx context.Context, id string, salary decimal.Decimal) error {
	if !salary.IsPositive() {
		return ErrInvalidSalary
	}
	list, err := s.List(ctx)
	if err != nil {
		return err
	}
	current, ok := Find(list, id)
	if !ok {
		return ErrEmployeeNotFound
	}
	if salary.LessThanOrEqual(current.Salary) {
		return ErrSalaryNotIncreased
	}
	return s.patch(ctx, id, "update-salary", map[string]json.Number{"salary": json.Number(salary.String())})
}

func (s *Service) patch(ctx context.Context, id, action string, body any) error {
	_, err := query.Mutate(ctx, s.cache, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.api.Do(ctx, gateway.Patch("/employees/"+url.PathEscape(id)+"/"+action, body), nil)
	}, query.NewKey("employees"), DetailsKey(id))
	return err
}
