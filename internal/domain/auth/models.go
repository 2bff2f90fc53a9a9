package auth

import (
	"strings"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleHR       Role = "hr"
	RoleEmployee Role = "employee"
)

var KnownRoles = []Role{RoleAdmin, RoleHR, RoleEmployee}

func ParseRole(value string) (Role, bool) {
	normalized := Role(strings.ToLower(strings.TrimSpace(value)))
	for _, role := range KnownRoles {
		if normalized == role {
			return role, true
		}
	}
	return Role(value), false
}

// Principal is the signed-in user as asserted by the backend profile endpoint.
type Principal struct {
	Subject       string          `json:"subject"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          Role            `json:"role"`
	Designation   string          `json:"designation"`
	Salary        decimal.Decimal `json:"salary"`
	BankAccountNo string          `json:"bankAccountNo"`
	Photo         string          `json:"photo"`
}

// SameIdentity reports whether two principals refer to the same subject.
func SameIdentity(a, b *Principal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Subject == b.Subject && strings.EqualFold(a.Email, b.Email)
}
