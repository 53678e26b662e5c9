// Package cpr validates Danish civil registration numbers as typed by users.
package cpr

import "strings"

// Length is the number of digits in a CPR number.
const Length = 10

// Normalize strips hyphens, e.g. "010190-1234" becomes "0101901234".
func Normalize(raw string) string {
	return strings.ReplaceAll(raw, "-", "")
}

// Validate reports whether raw is exactly ten ASCII digits once hyphens are removed.
func Validate(raw string) bool {
	s := Normalize(raw)
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseList parses a comma separated list of CPR numbers. All whitespace is
// removed first and a single trailing comma is tolerated.
//
// The boolean is false when nothing was entered or when any entry is invalid;
// a partial list is never returned. Whitespace-only input yields an empty,
// valid list so callers can tell it apart from a rejection.
func ParseList(text string) ([]string, bool) {
	if text == "" {
		return nil, false
	}

	compact := strings.Join(strings.Fields(text), "")
	tokens := strings.Split(compact, ",")
	if tokens[len(tokens)-1] == "" {
		tokens = tokens[:len(tokens)-1]
	}

	cprs := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if !Validate(token) {
			return nil, false
		}
		cprs = append(cprs, Normalize(token))
	}
	return cprs, true
}

// Mask hides the serial part of a CPR number for application logs.
// The audit table keeps the full number; logs should not.
func Mask(raw string) string {
	s := Normalize(raw)
	if len(s) != Length {
		return strings.Repeat("X", len(s))
	}
	return s[:6] + "-XXXX"
}
