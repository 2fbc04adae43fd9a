package domain

import (
	"strings"
	"time"
)

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate parses an RFC3339 timestamp or a local wall-clock date/time.
// Date-only input means local midnight. An empty string yields nil.
func ParseDueDate(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t = Normalize(t)
		return &t, nil
	}

	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			t = Normalize(t)
			return &t, nil
		}
	}

	return nil, ErrInvalidDueDate
}
