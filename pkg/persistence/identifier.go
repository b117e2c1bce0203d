package persistence

import "regexp"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidIdentifier reports whether name is safe to use as a table or column name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}
