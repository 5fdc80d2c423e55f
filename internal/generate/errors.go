package generate

import (
	"errors"
	"fmt"

	"grimm.is/netgen/internal/netdef"
)

// ErrNoWriter is returned when no writer is registered for a backend.
var ErrNoWriter = errors.New("no writer registered")

// WriteError reports a backend writer failing on one definition.
type WriteError struct {
	Backend netdef.Backend
	ID      string
	Err     error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: cannot write %s configuration: %v", e.ID, e.Backend, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// EnableError reports a service enablement link that could not be created.
type EnableError struct {
	Backend netdef.Backend
	Path    string
	Err     error
}

func (e *EnableError) Error() string {
	return fmt.Sprintf("cannot enable %s: %s: %v", e.Backend, e.Path, e.Err)
}

func (e *EnableError) Unwrap() error { return e.Err }
