package shared

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"optimahub/internal/domain/contact"
	"optimahub/internal/domain/employees"
	"optimahub/internal/domain/payroll"
	"optimahub/internal/domain/period"
	"optimahub/internal/domain/workrecords"
	"optimahub/internal/gateway"
	"optimahub/internal/platform/imagehost"
	"optimahub/internal/query"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
)

type fieldError struct {
	err   error
	field string
}

var validationErrors = []fieldError{
	{employees.ErrSalaryNotIncreased, "salary"},
	{employees.ErrInvalidSalary, "salary"},
	{employees.ErrInvalidRole, "role"},
	{workrecords.ErrInvalidHours, "hoursWorked"},
	{workrecords.ErrInvalidTask, "task"},
	{workrecords.ErrInvalidDate, "date"},
	{payroll.ErrInvalidAmount, "salary"},
	{payroll.ErrMissingPaymentToken, "paymentToken"},
	{period.ErrInvalidMonth, "month"},
	{period.ErrInvalidYear, "year"},
	{contact.ErrInvalidEmail, "email"},
	{contact.ErrEmptyMessage, "message"},
	{contact.ErrMessageTooLong, "message"},
	{imagehost.ErrEmptyImage, "photo"},
	{imagehost.ErrImageTooLarge, "photo"},
}

type statusError struct {
	err    error
	status int
	code   string
}

var statusErrors = []statusError{
	{query.ErrSuperseded, http.StatusConflict, "superseded"},
	{session.ErrInvalidCredentials, http.StatusUnauthorized, "invalid_credentials"},
	{gateway.ErrUnauthorized, http.StatusUnauthorized, "session_expired"},
	{session.ErrRegistrationFailed, http.StatusBadRequest, "registration_failed"},
	{employees.ErrEmployeeNotFound, http.StatusNotFound, "not_found"},
	{payroll.ErrRequestNotFound, http.StatusNotFound, "not_found"},
	{payroll.ErrEmployeeNotVerified, http.StatusConflict, "employee_not_verified"},
	{payroll.ErrDuplicateRequest, http.StatusConflict, "duplicate_request"},
	{payroll.ErrAlreadyPaid, http.StatusConflict, "already_paid"},
	{payroll.ErrPaymentInFlight, http.StatusConflict, "payment_in_flight"},
	{workrecords.ErrNotOwnRecord, http.StatusForbidden, "forbidden"},
	{imagehost.ErrNotConfigured, http.StatusServiceUnavailable, "image_host_unavailable"},
}

// WriteError maps a domain or gateway error onto the response envelope.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	requestID := requestctx.GetRequestID(r.Context())

	for _, fe := range validationErrors {
		if errors.Is(err, fe.err) {
			FailValidation(w, requestID, []ValidationIssue{{Field: fe.field, Reason: fe.err.Error()}})
			return
		}
	}
	for _, se := range statusErrors {
		if errors.Is(err, se.err) {
			api.Fail(w, se.status, se.code, se.err.Error(), requestID)
			return
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		api.Fail(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body is too large", requestID)
		return
	}

	var apiErr *gateway.Error
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		message := apiErr.Message
		if message == "" {
			message = http.StatusText(apiErr.Status)
		}
		api.Fail(w, apiErr.Status, "upstream_rejected", message, requestID)
		return
	}
	if errors.Is(err, context.Canceled) && r.Context().Err() != nil {
		// The browser went away; nobody reads this answer.
		return
	}

	// Everything else failed on the way to or from the backend.
	slog.Warn("upstream call failed", "err", err, "transient", gateway.IsTransient(err), "path", r.URL.Path, "requestId", requestID)
	api.Fail(w, http.StatusBadGateway, "upstream_error", "backend is unavailable, please retry", requestID)
}
