// Package state holds the validated, immutable result of a parse.
//
// A State is produced by Import, which:
//   - validates every accumulated definition (go-playground/validator tags plus
//     structural checks such as duplicate membership)
//   - resolves parents, VLAN links and virtual-switch membership
//   - picks the backend each definition is routed to
//   - drains the accumulator it was imported from
//
// Once imported a State is never modified; generation passes only read it.
package state

import (
	"grimm.is/netgen/internal/netdef"
)

// GlobalSettings apply to the whole network rather than one definition.
type GlobalSettings = netdef.Globals

// Reference is a name a definition points at that is neither another
// definition nor a device present on the system.
type Reference struct {
	From  string // referring definition
	Field string // "link", "interfaces" or "match"
	To    string
}

// State is the validated, backend-resolved set of definitions.
type State struct {
	table      *netdef.Table
	globals    GlobalSettings
	unresolved []Reference
	fallback   netdef.Backend
}

// Empty returns a State with no definitions.
func Empty() *State {
	return &State{table: netdef.NewTable(), fallback: netdef.DefaultBackend}
}

// Len returns the number of definitions.
func (s *State) Len() int {
	if s == nil {
		return 0
	}
	return s.table.Len()
}

// Get looks up a definition by id.
func (s *State) Get(id string) (*netdef.Definition, bool) {
	if s == nil {
		return nil, false
	}
	return s.table.Get(id)
}

// Definitions returns every definition in first-seen order.
func (s *State) Definitions() []*netdef.Definition {
	if s == nil {
		return nil
	}
	return s.table.Ordered()
}

// ByKind returns the definitions of one kind in first-seen order.
func (s *State) ByKind(kind netdef.Kind) []*netdef.Definition {
	if s == nil {
		return nil
	}
	return s.table.ByKind(kind)
}

// RoutedTo returns the definitions backend b consumes.
func (s *State) RoutedTo(b netdef.Backend) []*netdef.Definition {
	var out []*netdef.Definition
	for _, d := range s.Definitions() {
		if d.AppliesTo(b) {
			out = append(out, d)
		}
	}
	return out
}

// FilenameByID returns the file a definition was first declared in.
func (s *State) FilenameByID(id string) (string, bool) {
	d, ok := s.Get(id)
	if !ok || d.Filename == "" {
		return "", false
	}
	return d.Filename, true
}

// Globals returns a copy of the global settings.
func (s *State) Globals() GlobalSettings {
	if s == nil {
		return GlobalSettings{}
	}
	return s.globals.Clone()
}

// Backend returns the global default backend: the document renderer if one
// was given, else the configured fallback.
func (s *State) Backend() netdef.Backend {
	if s == nil {
		return netdef.DefaultBackend
	}
	if s.globals.Backend != netdef.BackendNone {
		return s.globals.Backend
	}
	return s.fallback
}

// Unresolved lists references that matched neither a definition nor a
// system device.
func (s *State) Unresolved() []Reference {
	if s == nil {
		return nil
	}
	return append([]Reference(nil), s.unresolved...)
}

// Table returns a copy of the definition table.
func (s *State) Table() *netdef.Table {
	if s == nil {
		return netdef.NewTable()
	}
	return s.table.Clone()
}
