package employees

import "errors"

var (
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrSalaryNotIncreased = errors.New("new salary must be greater than the current salary")
	ErrInvalidSalary      = errors.New("salary must be a positive amount")
	ErrInvalidRole        = errors.New("role must be one of admin, hr, employee")
)
