package auth

const (
	CapEmployeesReadAll    = "employees.read_all"
	CapEmployeesRead       = "employees.read"
	CapEmployeesVerify     = "employees.verify"
	CapEmployeesFire       = "employees.fire"
	CapEmployeesChangeRole = "employees.change_role"
	CapEmployeesSalary     = "employees.salary"
	CapWorkRecordsOwn      = "work_records.own"
	CapWorkRecordsReadAll  = "work_records.read_all"
	CapPayrollRequest      = "payroll.request"
	CapPayrollPay          = "payroll.pay"
	CapPaymentHistoryOwn   = "payment_history.own"
	CapAuditRead           = "audit.read"
)

// RoleCapabilities mirrors what each dashboard variant offers. The backend remains the
// authority; this gate only keeps the front server from issuing calls a role cannot make.
var RoleCapabilities = map[Role][]string{
	RoleAdmin: {
		CapEmployeesReadAll,
		CapEmployeesRead,
		CapEmployeesFire,
		CapEmployeesChangeRole,
		CapEmployeesSalary,
		CapPayrollPay,
		CapAuditRead,
	},
	RoleHR: {
		CapEmployeesRead,
		CapEmployeesVerify,
		CapWorkRecordsReadAll,
		CapPayrollRequest,
	},
	RoleEmployee: {
		CapWorkRecordsOwn,
		CapPaymentHistoryOwn,
	},
}

func (p *Principal) Can(capability string) bool {
	if p == nil {
		return false
	}
	role, ok := ParseRole(string(p.Role))
	if !ok {
		return false
	}
	for _, c := range RoleCapabilities[role] {
		if c == capability {
			return true
		}
	}
	return false
}
