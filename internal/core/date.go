package core

import (
	"bytes"
	"strings"
	"time"
)

// DateLayout is the calendar date format used by query parameters.
const DateLayout = "2006-01-02"

// Date is a point in time decoded from either RFC 3339 or a calendar date.
type Date struct {
	time.Time
}

// ParseDate accepts RFC 3339 timestamps and YYYY-MM-DD dates (midnight UTC).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, NewValidationError("date", "must be an RFC 3339 timestamp or YYYY-MM-DD")
	}
	return t, nil
}

// EndOfDay returns the last millisecond of the calendar day of t in UTC.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}

func (d *Date) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return NewValidationError("date", "must be a string")
	}
	t, err := ParseDate(string(data[1 : len(data)-1]))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}
