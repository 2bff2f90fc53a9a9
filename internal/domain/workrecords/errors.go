package workrecords

import "errors"

var (
	ErrInvalidHours = errors.New("hoursWorked must be a positive number")
	ErrInvalidTask  = errors.New("task must be one of Sales, Support, Content, Paper-work")
	ErrInvalidDate  = errors.New("date must be an ISO-8601 date")
	ErrNotOwnRecord = errors.New("work record does not belong to the signed-in employee")
)
