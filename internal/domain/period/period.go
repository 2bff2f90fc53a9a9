package period

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidMonth = errors.New("month must be a month name or a number from 1 to 12")
	ErrInvalidYear  = errors.New("year must be a four digit year")
)

// FilterAll is the month/employee filter value that disables the filter.
const FilterAll = "all"

// ParseMonth accepts a full or three-letter English month name, or 1 to 12, and returns
// the full name used on the wire ("January").
func ParseMonth(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", ErrInvalidMonth
	}
	if n, err := strconv.Atoi(value); err == nil {
		if n < 1 || n > 12 {
			return "", ErrInvalidMonth
		}
		return time.Month(n).String(), nil
	}
	for m := time.January; m <= time.December; m++ {
		name := m.String()
		if strings.EqualFold(value, name) || strings.EqualFold(value, name[:3]) {
			return name, nil
		}
	}
	return "", ErrInvalidMonth
}

// MonthFilter normalizes an optional month filter. Empty and "all" mean no filter.
func MonthFilter(raw string) (string, error) {
	value := strings.TrimSpace(raw)
	if value == "" || strings.EqualFold(value, FilterAll) {
		return "", nil
	}
	return ParseMonth(value)
}

// MonthOf returns the long month name of t, the form month filters compare against.
func MonthOf(t time.Time) string {
	return t.Month().String()
}

// Year is a calendar year that decodes from either a JSON number or a numeric string.
type Year int

func ParseYear(raw string) (Year, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1000 || n > 9999 {
		return 0, ErrInvalidYear
	}
	return Year(n), nil
}

func (y Year) String() string {
	return strconv.Itoa(int(y))
}

func (y *Year) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) || len(data) == 0 {
		*y = 0
		return nil
	}
	var raw string
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if strings.TrimSpace(raw) == "" {
			*y = 0
			return nil
		}
	} else {
		raw = string(data)
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return ErrInvalidYear
	}
	*y = Year(n)
	return nil
}
