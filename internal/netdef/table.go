package netdef

// Table owns every known definition, keyed by id, and remembers the order in
// which ids were first seen so output is deterministic.
type Table struct {
	defs  map[string]*Definition
	order []string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{defs: make(map[string]*Definition)}
}

// Len returns the number of definitions.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}

// Get looks up a definition by id.
func (t *Table) Get(id string) (*Definition, bool) {
	if t == nil {
		return nil, false
	}
	d, ok := t.defs[id]
	return d, ok
}

// IDs returns the ids in first-seen order.
func (t *Table) IDs() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.order...)
}

// Ordered returns the definitions in first-seen order.
func (t *Table) Ordered() []*Definition {
	if t == nil {
		return nil
	}
	out := make([]*Definition, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.defs[id])
	}
	return out
}

// ByKind returns the definitions of one kind in first-seen order.
func (t *Table) ByKind(kind Kind) []*Definition {
	var out []*Definition
	for _, d := range t.Ordered() {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

// Check reports whether merging frag would fail, without changing the table.
func (t *Table) Check(frag *Definition) error {
	existing, ok := t.defs[frag.ID]
	if !ok {
		return nil
	}
	if !existing.Kind.CompatibleWith(frag.Kind) {
		return &KindConflict{ID: frag.ID, Existing: existing.Kind, Incoming: frag.Kind}
	}
	return nil
}

// Merge inserts frag, or folds it into the existing definition with the
// same id. The table keeps its own copy of frag.
func (t *Table) Merge(frag *Definition) error {
	existing, ok := t.defs[frag.ID]
	if !ok {
		t.defs[frag.ID] = frag.Clone()
		t.order = append(t.order, frag.ID)
		return nil
	}
	return existing.Merge(frag)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := NewTable()
	if t == nil {
		return out
	}
	for _, id := range t.order {
		out.defs[id] = t.defs[id].Clone()
	}
	out.order = append(out.order, t.order...)
	return out
}

// Equal compares two tables by id, ignoring origin filenames and
// import-resolved fields. First-seen order is not compared: it depends on
// how definitions were spread over documents, not on what they say.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for id, d := range t.defs {
		o, ok := other.defs[id]
		if !ok || !d.Equivalent(o) {
			return false
		}
	}
	return true
}
