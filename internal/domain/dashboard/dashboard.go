package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"optimahub/internal/domain/auth"
	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/payroll"
	"optimahub/internal/domain/workrecords"
)

// View is the single dashboard variant the router selected, with its data.
type View struct {
	State     auth.State      `json:"state"`
	Principal *auth.Principal `json:"principal,omitempty"`
	Admin     *AdminView      `json:"admin,omitempty"`
	HR        *HRView         `json:"hr,omitempty"`
	Employee  *EmployeeView   `json:"employee,omitempty"`
}

type AdminView struct {
	Employees       []employees.Employee `json:"employees"`
	PayrollRequests []payroll.Request    `json:"payrollRequests"`
	Roles           []auth.Role          `json:"roles"`
}

type HREmployee struct {
	employees.Employee
	CanRequestPayment bool `json:"canRequestPayment"`
}

type HRView struct {
	Employees   []HREmployee         `json:"employees"`
	WorkRecords []workrecords.Record `json:"workRecords"`
	Filter      workrecords.Filter   `json:"filter"`
	TotalHours  float64              `json:"totalHours"`
}

type EmployeeView struct {
	WorkRecords []workrecords.Record `json:"workRecords"`
	Tasks       []workrecords.Task   `json:"tasks"`
	History     payroll.HistoryPage  `json:"history"`
}

type Options struct {
	Filter      workrecords.Filter
	HistoryPage int
}

type Builder struct {
	Employees   *employees.Service
	WorkRecords *workrecords.Service
	Payroll     *payroll.Service
}

// Build routes the principal and loads only the data its dashboard shows.
func (b Builder) Build(ctx context.Context, principal *auth.Principal, loading bool, opts Options) (View, error) {
	view := View{State: auth.Route(principal, loading)}
	if view.State != auth.StateResolving && view.State != auth.StateUnauthenticated {
		view.Principal = principal
	}

	var err error
	switch view.State {
	case auth.StateAdmin:
		view.Admin, err = b.admin(ctx)
	case auth.StateHR:
		view.HR, err = b.hr(ctx, opts.Filter)
	case auth.StateEmployee:
		view.Employee, err = b.employee(ctx, opts.HistoryPage)
	}
	if err != nil {
		return View{State: view.State, Principal: view.Principal}, err
	}
	return view, nil
}

func (b Builder) admin(ctx context.Context) (*AdminView, error) {
	out := &AdminView{Roles: auth.KnownRoles}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := b.Employees.List(gctx)
		out.Employees = list
		return err
	})
	g.Go(func() error {
		pending, err := b.Payroll.Pending(gctx)
		out.PayrollRequests = pending
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (b Builder) hr(ctx context.Context, filter workrecords.Filter) (*HRView, error) {
	out := &HRView{Filter: filter}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := b.Employees.ListForHR(gctx)
		if err != nil {
			return err
		}
		out.Employees = HRRows(list)
		return nil
	})
	g.Go(func() error {
		records, err := b.WorkRecords.Filtered(gctx, filter)
		out.WorkRecords = records
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.TotalHours = workrecords.TotalHours(out.WorkRecords)
	return out, nil
}

func (b Builder) employee(ctx context.Context, page int) (*EmployeeView, error) {
	out := &EmployeeView{Tasks: workrecords.Tasks}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		records, err := b.WorkRecords.List(gctx)
		out.WorkRecords = records
		return err
	})
	g.Go(func() error {
		history, err := b.Payroll.History(gctx, page, payroll.DefaultHistoryLimit)
		out.History = history
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// HRRows decorates employees with whether HR may file a payment request for them.
func HRRows(list []employees.Employee) []HREmployee {
	rows := make([]HREmployee, 0, len(list))
	for _, e := range list {
		rows = append(rows, HREmployee{Employee: e, CanRequestPayment: e.CanRequestPayment()})
	}
	return rows
}
