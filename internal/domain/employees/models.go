package employees

import (
	"time"

	"github.com/shopspring/decimal"

	"optimahub/internal/domain/auth"
	"optimahub/internal/domain/period"
)

type Employee struct {
	ID            string          `json:"_id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Salary        decimal.Decimal `json:"salary"`
	BankAccountNo string          `json:"bankAccountNo"`
	IsVerified    bool            `json:"isVerified"`
	IsFired       bool            `json:"isFired"`
	Role          auth.Role       `json:"role"`
	Designation   string          `json:"designation"`
	Photo         string          `json:"photo"`
}

// CanRequestPayment gates the HR payment-request action.
func (e Employee) CanRequestPayment() bool {
	return e.IsVerified
}

type SalaryRecord struct {
	Month       string          `json:"month"`
	Year        period.Year     `json:"year"`
	Salary      decimal.Decimal `json:"salary"`
	PaymentDate *time.Time      `json:"paymentDate,omitempty"`
}

type Details struct {
	Employee
	SalaryRecords []SalaryRecord `json:"salaryRecords"`
}
