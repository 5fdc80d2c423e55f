package netdef

// Globals holds settings that apply to the whole network rather than to one
// definition: the default backend and virtual-switch global options.
type Globals struct {
	Backend     Backend
	OpenVSwitch Value
}

// Merge applies a later document's globals: an explicit renderer wins and
// the openvswitch block is deep-merged.
func (g *Globals) Merge(later Globals) {
	if later.Backend != BackendNone {
		g.Backend = later.Backend
	}
	g.OpenVSwitch = MergeValue(g.OpenVSwitch, later.OpenVSwitch)
}

// Clone returns a deep copy.
func (g Globals) Clone() Globals {
	return Globals{Backend: g.Backend, OpenVSwitch: g.OpenVSwitch.Clone()}
}

// IsZero reports whether no global setting was given.
func (g Globals) IsZero() bool {
	return g.Backend == BackendNone && g.OpenVSwitch.IsZero()
}
