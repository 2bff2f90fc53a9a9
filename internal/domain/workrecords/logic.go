package workrecords

import (
	"math"
	"strconv"
	"strings"
	"time"

	"optimahub/internal/domain/period"
)

func ParseTask(raw string) (Task, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return DefaultTask, nil
	}
	for _, task := range Tasks {
		if strings.EqualFold(value, string(task)) {
			return task, nil
		}
	}
	if strings.EqualFold(value, "paper work") || strings.EqualFold(value, "paperwork") {
		return TaskPaperWork, nil
	}
	return "", ErrInvalidTask
}

// ParseHours accepts the raw form value and rejects anything that is not a finite positive number.
func ParseHours(raw string) (float64, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, ErrInvalidHours
	}
	hours, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(hours) || math.IsInf(hours, 0) || hours <= 0 {
		return 0, ErrInvalidHours
	}
	return hours, nil
}

// ParseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. Empty means now.
func ParseDate(raw string, now time.Time) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return now.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, ErrInvalidDate
}

func NewDraft(task, hours, date string, now time.Time) (Draft, error) {
	parsedTask, err := ParseTask(task)
	if err != nil {
		return Draft{}, err
	}
	parsedHours, err := ParseHours(hours)
	if err != nil {
		return Draft{}, err
	}
	parsedDate, err := ParseDate(date, now)
	if err != nil {
		return Draft{}, err
	}
	return Draft{Task: parsedTask, HoursWorked: parsedHours, Date: parsedDate}, nil
}

// Apply filters records client-side by employee id and long month name.
func Apply(records []Record, f Filter) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if f.EmployeeID != "" && f.EmployeeID != period.FilterAll && r.EmployeeID != f.EmployeeID {
			continue
		}
		if f.Month != "" && period.MonthOf(r.Date) != f.Month {
			continue
		}
		out = append(out, r)
	}
	return out
}

func TotalHours(records []Record) float64 {
	var total float64
	for _, r := range records {
		total += r.HoursWorked
	}
	return total
}

// Chart returns one point per record labelled like "Jan 2".
func Chart(records []Record) []ChartPoint {
	points := make([]ChartPoint, 0, len(records))
	for _, r := range records {
		points = append(points, ChartPoint{Date: r.Date.Format("Jan 2"), Hours: r.HoursWorked})
	}
	return points
}
