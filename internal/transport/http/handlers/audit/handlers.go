package audithandler

import (
	"encoding/csv"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"optimahub/internal/domain/audit"
	"optimahub/internal/domain/auth"
	"optimahub/internal/requestctx"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

type Handler struct {
	Service *audit.Service
}

func NewHandler(service *audit.Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/audit", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.CapAuditRead))
		r.Get("/events", h.handleListEvents)
		r.Get("/events/export", h.handleExportEvents)
	})
}

// filterFrom reads the query filters. from and to are whole days, both inclusive.
func filterFrom(r *http.Request) (audit.Filter, *shared.Validator) {
	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		Actor:      q.Get("actor"),
	}
	v := shared.NewValidator()
	if raw := q.Get("from"); raw != "" {
		filter.Since, _ = v.Date("from", raw)
	}
	var to time.Time
	if raw := q.Get("to"); raw != "" {
		to, _ = v.Date("to", raw)
	}
	v.DateOrder("from", filter.Since, "to", to)
	if !to.IsZero() {
		filter.Until = to.AddDate(0, 0, 1)
	}
	return filter, v
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePagination(r, 100, 500)
	filter, v := filterFrom(r)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}
	includeDetails := r.URL.Query().Get("includeDetails") == "true"

	total, err := h.Service.Count(r.Context(), filter)
	if err != nil {
		slog.Warn("audit count failed", "err", err)
	}
	events, err := h.Service.List(r.Context(), filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		slog.Error("audit list failed", "err", err, "requestId", requestctx.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "audit_list_failed", "failed to list audit events", requestctx.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	filter, v := filterFrom(r)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}
	events, err := h.Service.List(r.Context(), filter, false, 0, 0)
	if err != nil {
		slog.Error("audit export failed", "err", err, "requestId", requestctx.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "audit_export_failed", "failed to export audit events", requestctx.GetRequestID(r.Context()))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		slog.Warn("audit export header failed", "err", err)
	}
	for _, evt := range events {
		row := []string{
			strconv.FormatInt(evt.ID, 10), evt.Actor, evt.Action, evt.EntityType, evt.EntityID,
			evt.RequestID, evt.IP, evt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			slog.Warn("audit export row failed", "err", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		slog.Warn("audit export flush failed", "err", err)
	}
}
