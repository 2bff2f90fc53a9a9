package payrollhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"optimahub/internal/domain/audit"
	"optimahub/internal/domain/auth"
	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/payroll"
	"optimahub/internal/domain/period"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

const (
	historyView = "employee.paymentHistory"
	payEndpoint = "payroll.pay"
)

type Handler struct {
	Idempotency *middleware.IdempotencyStore
	Audit       *audit.Service
	now         func() time.Time
}

func NewHandler(idempotency *middleware.IdempotencyStore, trail *audit.Service) *Handler {
	return &Handler{Idempotency: idempotency, Audit: trail, now: time.Now}
}

func (h *Handler) record(r *http.Request, action, employeeID, month string, year period.Year, detail any) {
	evt := middleware.AuditEvent(r, action, audit.EntityPayrollRequest, employeeID+":"+month+":"+year.String())
	if err := h.Audit.Record(r.Context(), evt, detail); err != nil {
		slog.Warn("audit record failed", "action", action, "err", err, "requestId", evt.RequestID)
	}
}

type requestPayload struct {
	EmployeeID string          `json:"employeeId"`
	Month      string          `json:"month"`
	Year       period.Year     `json:"year"`
	Salary     decimal.Decimal `json:"salary"`
}

type paymentPayload struct {
	EmployeeID     string          `json:"employeeId"`
	Month          string          `json:"month"`
	Year           period.Year     `json:"year"`
	Salary         decimal.Decimal `json:"salary"`
	Token          string          `json:"token"`
	PaymentDetails struct {
		Token string `json:"token"`
	} `json:"paymentDetails"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireCapability(auth.CapPayrollPay)).Get("/payroll-requests", h.handleListRequests)
	r.With(middleware.RequireCapability(auth.CapPayrollRequest)).Post("/payroll", h.handleCreateRequest)
	r.With(middleware.RequireCapability(auth.CapPayrollPay)).Post("/payroll-payment", h.handlePay)
	r.Route("/payment-history", func(r chi.Router) {
		r.Use(middleware.RequireCapability(auth.CapPaymentHistoryOwn))
		r.Get("/", h.handleHistory)
		r.Get("/export", h.handleHistoryExport)
	})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	svc := service(r)
	var (
		list []payroll.Request
		err  error
	)
	if strings.EqualFold(r.URL.Query().Get("status"), string(payroll.StatusPending)) {
		list, err = svc.Pending(r.Context())
	} else {
		list, err = svc.Requests(r.Context())
	}
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, list, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	v.Required("month", payload.Month, "month is required")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	list, err := employees.NewService(sess.API, sess.Cache).ListForHR(r.Context())
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	employee, ok := employees.Find(list, payload.EmployeeID)
	if !ok {
		shared.WriteError(w, r, employees.ErrEmployeeNotFound)
		return
	}

	draft, err := service(r).CreateRequest(r.Context(), employee, payroll.Draft{
		EmployeeID: payload.EmployeeID,
		Month:      payload.Month,
		Year:       payload.Year,
		Salary:     payload.Salary,
	})
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	slog.Info("payroll request filed", "employeeId", draft.EmployeeID, "month", draft.Month, "year", int(draft.Year), "requestId", requestctx.GetRequestID(r.Context()))
	h.record(r, audit.ActionPayrollFiled, draft.EmployeeID, draft.Month, draft.Year, map[string]string{"salary": draft.Salary.String()})
	api.Created(w, draft, requestctx.GetRequestID(r.Context()))
}

// handlePay forwards a hosted-widget token. A repeated Idempotency-Key replays the first answer
// instead of paying twice.
func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var raw bytes.Buffer
	var payload paymentPayload
	if err := json.NewDecoder(io.TeeReader(r.Body, &raw)).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	token := payload.Token
	if token == "" {
		token = payload.PaymentDetails.Token
	}
	v := shared.NewValidator()
	v.Required("employeeId", payload.EmployeeID, "employeeId is required")
	v.Required("month", payload.Month, "month is required")
	if payload.Year == 0 {
		v.Add("year", "year is required")
	}
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	principal, _ := middleware.GetPrincipal(r.Context())
	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	requestHash := middleware.RequestHash(raw.Bytes())
	reserved := false
	if idempotencyKey != "" {
		stored, found, err := h.Idempotency.Reserve(r.Context(), principal.Email, payEndpoint, idempotencyKey, requestHash)
		switch {
		case errors.Is(err, middleware.ErrIdempotencyConflict):
			api.Fail(w, http.StatusConflict, "idempotency_conflict", err.Error(), requestctx.GetRequestID(r.Context()))
			return
		case errors.Is(err, middleware.ErrIdempotencyInProgress):
			api.Fail(w, http.StatusConflict, "payment_in_flight", err.Error(), requestctx.GetRequestID(r.Context()))
			return
		case err != nil:
			slog.Warn("idempotency reserve failed", "err", err)
		case found:
			api.Success(w, stored, requestctx.GetRequestID(r.Context()))
			return
		default:
			reserved = true
		}
	}

	receipt, err := service(r).Pay(r.Context(), payroll.Payment{
		EmployeeID: payload.EmployeeID,
		Month:      payload.Month,
		Year:       payload.Year,
		Salary:     payload.Salary,
		Token:      token,
	})
	if err != nil {
		if reserved {
			if relErr := h.Idempotency.Release(context.WithoutCancel(r.Context()), principal.Email, payEndpoint, idempotencyKey); relErr != nil {
				slog.Warn("idempotency release failed", "err", relErr)
			}
		}
		shared.WriteError(w, r, err)
		return
	}
	slog.Info("payroll payment forwarded", "employeeId", payload.EmployeeID, "transactionId", receipt.TransactionID, "requestId", requestctx.GetRequestID(r.Context()))
	h.record(r, audit.ActionPaymentCharged, payload.EmployeeID, payload.Month, payload.Year, map[string]string{"transactionId": receipt.TransactionID})

	if reserved {
		stored, err := json.Marshal(receipt)
		if err != nil {
			slog.Warn("receipt marshal failed", "err", err)
		} else if err := h.Idempotency.Complete(context.WithoutCancel(r.Context()), principal.Email, payEndpoint, idempotencyKey, requestHash, stored); err != nil {
			slog.Warn("idempotency save failed", "err", err)
		}
	}
	api.Success(w, receipt, requestctx.GetRequestID(r.Context()))
}

// handleHistory serves the paginated history view. The previous page stays in the session's
// view while a newer page loads, so a superseded request answers 409.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePage(r, payroll.DefaultHistoryLimit, payroll.MaxHistoryLimit)
	sess, _ := middleware.GetSession(r.Context())
	obs := session.View[payroll.HistoryPage](sess, historyView, true)
	snap, err := service(r).HistoryView(r.Context(), obs, page.Page, page.Limit)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Success(w, shared.NewViewResponse(snap), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) handleHistoryExport(w http.ResponseWriter, r *http.Request) {
	page := shared.ParsePage(r, payroll.DefaultHistoryLimit, payroll.MaxHistoryLimit)
	history, err := service(r).History(r.Context(), page.Page, page.Limit)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	principal, _ := middleware.GetPrincipal(r.Context())
	var buf bytes.Buffer
	if err := payroll.WriteHistoryPDF(&buf, payroll.Statement{
		EmployeeName:  principal.Name,
		Email:         principal.Email,
		Designation:   principal.Designation,
		BankAccountNo: principal.BankAccountNo,
		GeneratedAt:   h.now(),
	}, history); err != nil {
		slog.Error("payment history pdf failed", "err", err, "requestId", requestctx.GetRequestID(r.Context()))
		api.Fail(w, http.StatusInternalServerError, "pdf_failed", "failed to render payment history", requestctx.GetRequestID(r.Context()))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=payment-history-page-%d.pdf", history.CurrentPage))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func service(r *http.Request) *payroll.Service {
	sess, _ := middleware.GetSession(r.Context())
	return payroll.NewService(sess.API, sess.Cache, sess.InFlight)
}
