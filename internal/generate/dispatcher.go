package generate

import (
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/metrics"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

// Dispatcher routes definitions to backend writers and remembers what was
// written during the current run.
type Dispatcher struct {
	writers map[netdef.Backend]Writer
	written map[netdef.Backend]map[string]struct{}
	counts  map[netdef.Backend]int

	log     *logging.Logger
	metrics *metrics.Registry
}

// NewDispatcher creates a dispatcher for the given writers. A nil logger or
// registry selects the defaults.
func NewDispatcher(log *logging.Logger, m *metrics.Registry, writers ...Writer) *Dispatcher {
	if log == nil {
		log = logging.Default()
	}
	if m == nil {
		m = metrics.Get()
	}
	d := &Dispatcher{
		writers: make(map[netdef.Backend]Writer),
		log:     log.WithComponent("generate"),
		metrics: m,
	}
	for _, w := range writers {
		d.writers[w.Backend()] = w
	}
	d.Reset()
	return d
}

// Writer returns the writer registered for a backend.
func (d *Dispatcher) Writer(b netdef.Backend) (Writer, bool) {
	w, ok := d.writers[b]
	return w, ok
}

// Write hands def to backend b if it applies there. The writer is not
// called for definitions the backend does not consume.
func (d *Dispatcher) Write(st *state.State, def *netdef.Definition, b netdef.Backend, root string) (Outcome, error) {
	if !Applies(def, b) {
		d.log.Debug("skipping definition", "id", def.ID, "backend", b.String())
		return NotApplicable, nil
	}
	w, ok := d.writers[b]
	if !ok {
		return NotApplicable, &WriteError{Backend: b, ID: def.ID, Err: ErrNoWriter}
	}

	paths, err := w.Write(st, def, root)
	if err != nil {
		d.metrics.RecordError("write")
		return NotApplicable, &WriteError{Backend: b, ID: def.ID, Err: err}
	}
	d.record(b, paths)
	d.counts[b]++
	d.log.Debug("wrote definition", "id", def.ID, "backend", b.String(), "files", len(paths))
	return Written, nil
}

// WriteAll writes every definition of st to backend b in state order and
// returns how many were written. It stops at the first error.
func (d *Dispatcher) WriteAll(st *state.State, b netdef.Backend, root string) (int, error) {
	n := 0
	for _, def := range st.Definitions() {
		outcome, err := d.Write(st, def, b, root)
		if err != nil {
			return n, err
		}
		if outcome == Written {
			n++
		}
	}
	return n, nil
}

// Count returns how many definitions were written to b this run.
func (d *Dispatcher) Count(b netdef.Backend) int {
	return d.counts[b]
}

// WrittenFiles returns the files written to b this run.
func (d *Dispatcher) WrittenFiles(b netdef.Backend) []string {
	out := make([]string, 0, len(d.written[b]))
	for p := range d.written[b] {
		out = append(out, p)
	}
	return out
}

func (d *Dispatcher) wrote(b netdef.Backend, rel string) bool {
	_, ok := d.written[b][rel]
	return ok
}

func (d *Dispatcher) record(b netdef.Backend, paths []string) {
	if d.written[b] == nil {
		d.written[b] = make(map[string]struct{})
	}
	for _, p := range paths {
		d.written[b][p] = struct{}{}
	}
	d.metrics.RecordWritten(b.String(), len(paths))
}

// Reset forgets what was written, starting a new run.
func (d *Dispatcher) Reset() {
	d.written = make(map[netdef.Backend]map[string]struct{})
	d.counts = make(map[netdef.Backend]int)
}
