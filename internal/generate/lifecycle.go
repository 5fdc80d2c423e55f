package generate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

// Lifecycle runs the per-backend steps around writing: finishing aggregate
// output, enabling services and removing stale artifacts.
type Lifecycle struct {
	d        *Dispatcher
	finished map[netdef.Backend]bool
}

// NewLifecycle creates a lifecycle manager sharing the dispatcher's record
// of the current run.
func NewLifecycle(d *Dispatcher) *Lifecycle {
	return &Lifecycle{d: d, finished: make(map[netdef.Backend]bool)}
}

// Finish lets backend b write its aggregate output. It does nothing when
// nothing was written to b this run, or when b was already finished.
func (l *Lifecycle) Finish(st *state.State, b netdef.Backend, root string) error {
	if l.finished[b] || l.d.Count(b) == 0 {
		return nil
	}
	w, ok := l.d.Writer(b)
	if !ok {
		return fmt.Errorf("finish %s: %w", b, ErrNoWriter)
	}
	paths, err := w.Finish(st, root)
	if err != nil {
		l.d.metrics.RecordError("finish")
		return fmt.Errorf("finish %s: %w", b, err)
	}
	l.d.record(b, paths)
	l.finished[b] = true
	return nil
}

// Enable creates the enablement links for backend b under generatorDir.
// An existing link counts as success.
func (l *Lifecycle) Enable(b netdef.Backend, generatorDir string) error {
	w, ok := l.d.Writer(b)
	if !ok {
		return &EnableError{Backend: b, Path: generatorDir, Err: ErrNoWriter}
	}

	created := 0
	for _, u := range w.Units() {
		link := filepath.Join(generatorDir, u.WantedBy+".wants", u.Name)
		if err := os.MkdirAll(filepath.Dir(link), 0o755); err != nil {
			l.d.metrics.RecordError("enable")
			return &EnableError{Backend: b, Path: link, Err: err}
		}
		if err := os.Symlink(u.Target, link); err != nil {
			if errors.Is(err, unix.EEXIST) {
				continue
			}
			l.d.metrics.RecordError("enable")
			return &EnableError{Backend: b, Path: link, Err: err}
		}
		created++
	}
	l.d.metrics.RecordEnabled(b.String(), created)
	l.d.log.Debug("enabled units", "backend", b.String(), "created", created)
	return nil
}

// Cleanup removes artifacts of backend b that no longer belong to the
// state. Anything written to b this run is kept. Otherwise a per-definition
// artifact is stale when its definition is gone or no longer applies to b,
// or when b ran and did not rewrite it. Aggregate artifacts are removed
// only when no definition is routed to b. Returns the removed paths.
func (l *Lifecycle) Cleanup(st *state.State, b netdef.Backend, root string) ([]string, error) {
	w, ok := l.d.Writer(b)
	if !ok {
		return nil, fmt.Errorf("cleanup %s: %w", b, ErrNoWriter)
	}
	artifacts, err := w.Artifacts(root)
	if err != nil {
		l.d.metrics.RecordError("cleanup")
		return nil, fmt.Errorf("cleanup %s: %w", b, err)
	}

	ran := l.d.Count(b) > 0
	routed := len(st.RoutedTo(b)) > 0

	var removed []string
	for _, rel := range artifacts {
		if l.d.wrote(b, rel) {
			continue
		}
		id, aggregate, ok := w.Owner(st, rel)
		if !ok {
			continue
		}

		var stale bool
		if aggregate {
			stale = !routed
		} else {
			def, exists := st.Get(id)
			stale = !exists || !Applies(def, b) || ran
		}
		if !stale {
			continue
		}

		if err := removeFile(root, rel); err != nil {
			l.d.metrics.RecordError("cleanup")
			return removed, fmt.Errorf("cleanup %s: %w", b, err)
		}
		removed = append(removed, rel)
	}

	l.d.metrics.RecordRemoved(b.String(), len(removed))
	if len(removed) > 0 {
		l.d.log.Info("removed stale artifacts", "backend", b.String(), "count", len(removed))
	}
	return removed, nil
}

// Reset starts a new run.
func (l *Lifecycle) Reset() {
	l.finished = make(map[netdef.Backend]bool)
	l.d.Reset()
}
