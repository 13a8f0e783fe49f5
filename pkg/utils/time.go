package utils

import "time"

// NowRFC3339 formats the current UTC time as RFC3339. Timestamps in
// API responses and persisted items all use this form.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// ParseRFC3339 parses an RFC3339 timestamp.
func ParseRFC3339(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
