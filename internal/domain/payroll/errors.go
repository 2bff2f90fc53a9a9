package payroll

import "errors"

var (
	ErrEmployeeNotVerified = errors.New("payment requests require a verified employee")
	ErrDuplicateRequest    = errors.New("a payment request for this employee and period already exists")
	ErrRequestNotFound     = errors.New("payroll request not found")
	ErrAlreadyPaid         = errors.New("payroll request has already been paid")
	ErrPaymentInFlight     = errors.New("a payment for this request is already being processed")
	ErrMissingPaymentToken = errors.New("payment token is required")
	ErrInvalidAmount       = errors.New("salary must be a positive amount")
)
