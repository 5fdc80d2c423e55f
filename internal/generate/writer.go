package generate

import (
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

// Writer renders definitions into one backend's native configuration.
// All paths a Writer reports are relative to the root it was given.
type Writer interface {
	Backend() netdef.Backend

	// Write renders one definition and returns the files it wrote.
	Write(st *state.State, def *netdef.Definition, root string) ([]string, error)

	// Finish writes whatever depends on the full set of definitions
	// (aggregate files). It is called once per run, after all writes.
	Finish(st *state.State, root string) ([]string, error)

	// Artifacts lists the files under root that may belong to this writer.
	Artifacts(root string) ([]string, error)

	// Owner maps an artifact to the definition it was generated for, using
	// st where the file name alone is ambiguous. Aggregate artifacts belong
	// to the backend as a whole; ok is false for files the writer does not
	// recognise.
	Owner(st *state.State, relPath string) (id string, aggregate bool, ok bool)

	// Units lists the services to enable when anything was written.
	Units() []Unit
}

// Unit is a service enablement link:
// <generator dir>/<WantedBy>.wants/<Name> -> Target.
type Unit struct {
	WantedBy string
	Name     string
	Target   string
}

// Outcome is the result of dispatching one definition to one backend.
type Outcome int

const (
	NotApplicable Outcome = iota
	Written
)

func (o Outcome) String() string {
	if o == Written {
		return "written"
	}
	return "not-applicable"
}

// Applies reports whether backend b consumes def.
func Applies(def *netdef.Definition, b netdef.Backend) bool {
	return def.AppliesTo(b)
}
