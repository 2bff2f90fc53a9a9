package payroll

type Status string

const (
	StatusPending Status = "Pending"
	StatusPaid    Status = "Paid"
)

const (
	DefaultHistoryLimit = 5
	MaxHistoryLimit     = 50
)
