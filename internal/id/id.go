// Package id formats and resolves the shortened transaction and batch
// ids shown in CLI output. The display form is the first uuid segment,
// enough to be unambiguous within one batch.
package id

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Short returns the display form of an id, e.g.
// "0b8e9c52-4f1d-4a9e-9d5a-1f2e3c4d5e6f" -> "0b8e9c52".
func Short(u uuid.UUID) string {
	s := u.String()
	if i := strings.IndexByte(s, '-'); i > 0 {
		return s[:i]
	}
	return s
}

// Resolve parses user input as a transaction or batch id. Full uuids
// parse directly; a shortened form is matched against the candidate
// list by prefix and must identify exactly one candidate.
func Resolve(input string, candidates []uuid.UUID) (uuid.UUID, error) {
	input = strings.ToLower(strings.TrimSpace(input))
	if input == "" {
		return uuid.Nil, fmt.Errorf("empty id")
	}

	if u, err := uuid.Parse(input); err == nil {
		return u, nil
	}

	var found uuid.UUID
	matches := 0
	for _, c := range candidates {
		if strings.HasPrefix(c.String(), input) {
			found = c
			matches++
		}
	}
	switch matches {
	case 0:
		return uuid.Nil, fmt.Errorf("no id matches %q", input)
	case 1:
		return found, nil
	default:
		return uuid.Nil, fmt.Errorf("%q is ambiguous, matches %d ids", input, matches)
	}
}
