package workrecords

import "time"

type Record struct {
	ID          string    `json:"_id"`
	EmployeeID  string    `json:"employeeId"`
	Email       string    `json:"email,omitempty"`
	Name        string    `json:"name,omitempty"`
	Task        Task      `json:"task"`
	HoursWorked float64   `json:"hoursWorked"`
	Date        time.Time `json:"date"`
}

// Draft is a validated create/update payload.
type Draft struct {
	Task        Task      `json:"task"`
	HoursWorked float64   `json:"hoursWorked"`
	Date        time.Time `json:"date"`
}

// Filter narrows the HR work-record list. Empty fields match everything.
type Filter struct {
	EmployeeID string `json:"employeeId"`
	Month      string `json:"month"`
}

type ChartPoint struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// EmployeeMonth is the HR drill-down for one employee and month.
type EmployeeMonth struct {
	EmployeeID string       `json:"employeeId"`
	Month      string       `json:"month"`
	Records    []Record     `json:"records"`
	TotalHours float64      `json:"totalHours"`
	Chart      []ChartPoint `json:"chart"`
}
