package state

import (
	"fmt"
	"strings"
)

// ValidationError is a single rejected property of a definition.
type ValidationError struct {
	ID      string // definition id
	Field   string // document key path, e.g. "routes[0].to"
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.ID, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.ID, e.Field, e.Message)
}

// ValidationErrors collects every problem found during import.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}
