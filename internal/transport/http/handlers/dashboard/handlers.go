package dashboardhandler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"optimahub/internal/domain/auth"
	"optimahub/internal/domain/dashboard"
	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/payroll"
	"optimahub/internal/domain/period"
	"optimahub/internal/domain/workrecords"
	"optimahub/internal/requestctx"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.handleDashboard)
}

// handleDashboard answers with the one dashboard variant the session's principal routes to.
// Unauthenticated sessions get 401 so the browser shows the login page; denied roles get 403
// with the state so the browser can render the access-denied view.
func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	month, err := period.MonthFilter(r.URL.Query().Get("month"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	employeeID := strings.TrimSpace(r.URL.Query().Get("employeeId"))
	if employeeID == period.FilterAll {
		employeeID = ""
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))

	sess, _ := middleware.GetSession(r.Context())
	state := sess.State()
	builder := dashboard.Builder{
		Employees:   employees.NewService(sess.API, sess.Cache),
		WorkRecords: workrecords.NewService(sess.API, sess.Cache),
		Payroll:     payroll.NewService(sess.API, sess.Cache, sess.InFlight),
	}
	view, err := builder.Build(r.Context(), state.Principal, state.Loading, dashboard.Options{
		Filter:      workrecords.Filter{EmployeeID: employeeID, Month: month},
		HistoryPage: page,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}

	switch view.State {
	case auth.StateUnauthenticated:
		api.Fail(w, http.StatusUnauthorized, "unauthorized", "authentication required", requestctx.GetRequestID(r.Context()))
	case auth.StateDenied:
		api.WriteJSON(w, http.StatusForbidden, api.Envelope{
			Success:   false,
			Data:      view,
			Error:     &api.Error{Code: "role_denied", Message: "role is not allowed to use this application"},
			RequestID: requestctx.GetRequestID(r.Context()),
		})
	default:
		api.Success(w, view, requestctx.GetRequestID(r.Context()))
	}
}
