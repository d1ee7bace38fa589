package builder

import (
	"fmt"
	"strings"
)

// UnknownProjectsError reports requested project names that are not part of
// the configured project set. Every offender is listed, along with the full
// valid set.
type UnknownProjectsError struct {
	Unknown []string
	Valid   []string
}

func (e *UnknownProjectsError) Error() string {
	return fmt.Sprintf("project(s) %s not valid. Options are: %s",
		strings.Join(e.Unknown, ", "), strings.Join(e.Valid, ", "))
}

// checkProjects validates the requested names against the configured set,
// preserving request order in the error.
func checkProjects(requested, valid []string) error {
	known := make(map[string]bool, len(valid))
	for _, name := range valid {
		known[name] = true
	}
	var unknown []string
	seen := make(map[string]bool)
	for _, name := range requested {
		if !known[name] && !seen[name] {
			unknown = append(unknown, name)
			seen[name] = true
		}
	}
	if len(unknown) > 0 {
		return &UnknownProjectsError{Unknown: unknown, Valid: valid}
	}
	return nil
}
