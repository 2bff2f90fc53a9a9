package workrecordshandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"optimahub/internal/domain/auth"
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

// recordPayload accepts hoursWorked as a JSON number or as the raw form string.
type recordPayload struct {
	Task        string          `json:"task"`
	HoursWorked json.RawMessage `json:"hoursWorked"`
	Date        string          `json:"date"`
}

type hrListResponse struct {
	Records    []workrecords.Record `json:"records"`
	Filter     workrecords.Filter   `json:"filter"`
	TotalHours float64              `json:"totalHours"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireCapability(auth.CapWorkRecordsReadAll)).Get("/hr/work-records", h.handleListForHR)
	r.Route("/work-records", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.CapWorkRecordsOwn))
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Put("/{recordID}", h.handleUpdate)
		r.Delete("/{recordID}", h.handleDelete)
	})
}

func (h *Handler) handleListForHR(w http.ResponseWriter, r *http.Request) {
	month, err := period.MonthFilter(r.URL.Query().Get("month"))
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	filter := workrecords.Filter{EmployeeID: strings.TrimSpace(r.URL.Query().Get("employeeId")), Month: month}
	if filter.EmployeeID == period.FilterAll {
		filter.EmployeeID = ""
	}
	records, err := service(r).Filtered(r.Context(), filter)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, hrListResponse{
		Records:    records,
		Filter:     filter,
		TotalHours: workrecords.TotalHours(records),
	}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	records, err := service(r).List(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, records, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	svc := service(r)
	draft, err := svc.CreateFromForm(r.Context(), payload.Task, rawValue(payload.HoursWorked), payload.Date)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, draft, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var payload recordPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	draft, err := service(r).UpdateFromForm(r.Context(), chi.URLParam(r, "recordID"), payload.Task, rawValue(payload.HoursWorked), payload.Date)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, draft, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := service(r).Delete(r.Context(), chi.URLParam(r, "recordID")); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, requestctx.GetRequestID(r.Context()))
}

func rawValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

func service(r *http.Request) *workrecords.Service {
	sess, _ := middleware.GetSession(r.Context())
	return workrecords.NewService(sess.API, sess.Cache)
}
