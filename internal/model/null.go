package model

import "strings"

// NullString returns a pointer to the trimmed value, or nil when it is empty.
// Form and CSV inputs use it so that blank values are stored as NULL.
func NullString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string, or "" for nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
