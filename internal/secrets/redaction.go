package secrets

import "strings"

// Redact masks all but the last four characters of value.
func Redact(value string) string {
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	return strings.Repeat("*", len(value)-4) + value[len(value)-4:]
}
