package domain

import "strings"

// NormalizeName trims leading/trailing whitespace and collapses internal whitespace runs.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeTripName is NormalizeName with DefaultTripName for blank input.
func NormalizeTripName(s string) string {
	if n := NormalizeName(s); n != "" {
		return n
	}
	return DefaultTripName
}
