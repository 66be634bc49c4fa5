package core

import "strings"

// CleanString trims surrounding whitespace from s. Pass true to also
// lowercase it, the normal form for emails, roles and categories.
func CleanString(s string, lower ...bool) string {
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return strings.TrimSpace(s)
}
