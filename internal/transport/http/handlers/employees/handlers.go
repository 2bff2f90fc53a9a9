package employeeshandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"optimahub/internal/domain/audit"
	"optimahub/internal/domain/auth"
	"optimahub/internal/domain/dashboard"
	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/period"
	"optimahub/internal/domain/workrecords"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

const employeeMonthView = "hr.employeeMonth"

type Handler struct {
	Audit *audit.Service
}

func NewHandler(trail *audit.Service) *Handler {
	return &Handler{Audit: trail}
}

// record appends to the audit trail. A failed write is logged and never fails the request.
func (h *Handler) record(r *http.Request, action string, detail any) {
	evt := middleware.AuditEvent(r, action, audit.EntityEmployee, chi.URLParam(r, "employeeID"))
	if err := h.Audit.Record(r.Context(), evt, detail); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err, "requestId", evt.RequestID)
	}
}

type firePayload struct {
	IsFired *bool `json:"isFired"`
}

type rolePayload struct {
	Role string `json:"role"`
}

type salaryPayload struct {
	Salary json.Number `json:"salary"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireCapability(auth.CapEmployeesReadAll)).Get("/admin/employees", h.handleListAll)
	r.With(middleware.RequireCapability(auth.CapEmployeesRead)).Get("/hr/employees", h.handleListForHR)
	r.Route("/employees/{employeeID}", func(r chi.Router) {
		r.With(middleware.RequireCapability(auth.CapEmployeesRead)).Get("/details", h.handleDetails)
		r.With(middleware.RequireCapability(auth.CapWorkRecordsReadAll)).Get("/work-records", h.handleEmployeeMonth)
		r.With(middleware.RequireCapability(auth.CapEmployeesVerify)).Patch("/toggle-verify", h.handleToggleVerify)
		r.With(middleware.RequireCapability(auth.CapEmployeesFire)).Patch("/fire", h.handleFire)
		r.With(middleware.RequireCapability(auth.CapEmployeesChangeRole)).Patch("/change-role", h.handleChangeRole)
		r.With(middleware.RequireCapability(auth.CapEmployeesSalary)).Patch("/update-salary", h.handleUpdateSalary)
	})
}

func (h *Handler) handleListAll(w http.ResponseWriter, r *http.Request) {
	list, err := service(r).List(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleListForHR(w http.ResponseWriter, r *http.Request) {
	list, err := service(r).ListForHR(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, dashboard.HRRows(list), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDetails(w http.ResponseWriter, r *http.Request) {
	details, err := service(r).Details(r.Context(), chi.URLParam(r, "employeeID"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, details, requestctx.GetRequestID(r.Context()))
}

// handleEmployeeMonth serves the HR drill-down. Each session has one such view; when the
// browser switches month before the previous answer arrives, the older request gets 409.
func (h *Handler) handleEmployeeMonth(w http.ResponseWriter, r *http.Request) {
	month, err := period.MonthFilter(r.URL.Query().Get("month"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	obs := session.View[workrecords.EmployeeMonth](sess, employeeMonthView, false)
	snap, err := workrecords.NewService(sess.API, sess.Cache).EmployeeMonthView(r.Context(), obs, chi.URLParam(r, "employeeID"), month)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, shared.NewViewResponse(snap), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleToggleVerify(w http.ResponseWriter, r *http.Request) {
	svc := service(r)
	if err := svc.ToggleVerify(r.Context(), chi.URLParam(r, "employeeID")); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.record(r, audit.ActionVerifyToggled, nil)
	list, err := svc.ListForHR(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, dashboard.HRRows(list), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleFire(w http.ResponseWriter, r *http.Request) {
	var payload firePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	if payload.IsFired == nil {
		shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "isFired", Reason: "isFired is required"}})
		return
	}
	svc := service(r)
	if err := svc.SetFired(r.Context(), chi.URLParam(r, "employeeID"), *payload.IsFired); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	if *payload.IsFired {
		h.record(r, audit.ActionFired, nil)
	} else {
		h.record(r, audit.ActionReinstated, nil)
	}
	h.writeAdminList(w, r, svc)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	var payload rolePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	svc := service(r)
	if err := svc.ChangeRole(r.Context(), chi.URLParam(r, "employeeID"), payload.Role); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.record(r, audit.ActionRoleChanged, map[string]string{"role": strings.ToLower(strings.TrimSpace(payload.Role))})
	h.writeAdminList(w, r, svc)
}

func (h *Handler) handleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	var payload salaryPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	salary, err := decimal.NewFromString(strings.TrimSpace(payload.Salary.String()))
	if err != nil {
		shared.WriteError(w, r, employees.ErrInvalidSalary)
		return
	}
	svc := service(r)
	if err := svc.UpdateSalary(r.Context(), chi.URLParam(r, "employeeID"), salary); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.record(r, audit.ActionSalaryRaised, map[string]string{"salary": salary.String()})
	h.writeAdminList(w, r, svc)
}

func (h *Handler) writeAdminList(w http.ResponseWriter, r *http.Request, svc *employees.Service) {
	list, err := svc.List(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func service(r *http.Request) *employees.Service {
	sess, _ := middleware.GetSession(r.Context())
	return employees.NewService(sess.API, sess.Cache)
}
