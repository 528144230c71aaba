package ddl

import "fmt"

// quoteIdentifier validates and double-quotes a SQL identifier.
// Only [a-zA-Z0-9_] is allowed, which rules out quoting tricks and
// keeps the exact-name catalog lookups and the generated DDL in
// agreement about the object's name.
func quoteIdentifier(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrInvalidIdentifier)
	}

	for _, c := range name {
		if !((c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '_') {
			return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
		}
	}

	return `"` + name + `"`, nil
}
