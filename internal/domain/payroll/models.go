package payroll

import (
	"time"

	"github.com/shopspring/decimal"

	"optimahub/internal/domain/period"
)

type Request struct {
	ID            string          `json:"_id,omitempty"`
	EmployeeID    string          `json:"employeeId"`
	EmployeeName  string          `json:"employeeName"`
	Salary        decimal.Decimal `json:"salary"`
	Month         string          `json:"month"`
	Year          period.Year     `json:"year"`
	Status        Status          `json:"status"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
}

func (r Request) Matches(employeeID, month string, year period.Year) bool {
	return r.EmployeeID == employeeID && r.Month == month && r.Year == year
}

// Draft is an HR payment request for one employee and period.
type Draft struct {
	EmployeeID string          `json:"employeeId"`
	Month      string          `json:"month"`
	Year       period.Year     `json:"year"`
	Salary     decimal.Decimal `json:"salary"`
}

// Payment forwards a hosted-widget token for one pending request.
type Payment struct {
	EmployeeID string          `json:"employeeId"`
	Month      string          `json:"month"`
	Year       period.Year     `json:"year"`
	Salary     decimal.Decimal `json:"salary"`
	Token      string          `json:"token"`
}

type Receipt struct {
	TransactionID string `json:"transactionId,omitempty"`
	Message       string `json:"message,omitempty"`
}

type HistoryRecord struct {
	Month         string          `json:"month"`
	Year          period.Year     `json:"year"`
	Salary        decimal.Decimal `json:"salary"`
	TransactionID string          `json:"transactionId"`
	PaymentDate   *time.Time      `json:"paymentDate,omitempty"`
}

type HistoryPage struct {
	Data        []HistoryRecord `json:"data"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
}

// HasNext reports whether a later page exists.
func (p HistoryPage) HasNext() bool {
	return p.CurrentPage < p.TotalPages
}

func (p HistoryPage) HasPrev() bool {
	return p.CurrentPage > 1
}
