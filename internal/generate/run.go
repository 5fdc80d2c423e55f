package generate

import (
	"sort"

	"grimm.is/netgen/internal/clock"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

// Options configures a pipeline run.
type Options struct {
	// Root is prepended to every generated path ("/" on a live system).
	Root string
	// GeneratorDir receives enablement links. Empty skips enablement.
	GeneratorDir string
	// Backends limits the run; nil means every backend with a writer.
	Backends []netdef.Backend
}

// BackendReport summarizes one backend's part of a run.
type BackendReport struct {
	Backend     netdef.Backend
	Definitions int
	Written     []string
	Removed     []string
	Enabled     bool
}

// Report summarizes a run.
type Report struct {
	Backends []BackendReport
}

// Written returns the total number of definitions written.
func (r *Report) Written() int {
	n := 0
	for _, b := range r.Backends {
		n += b.Definitions
	}
	return n
}

// Run generates every backend for st, in the order networkd,
// NetworkManager, OpenVSwitch: write, finish, clean up, then enable if
// anything was written. A failure stops the run; backends already
// processed keep their output.
func Run(st *state.State, d *Dispatcher, opts Options) (report *Report, err error) {
	started := clock.Now()
	defer func() { d.metrics.RecordRun(started, err) }()

	backends := opts.Backends
	if backends == nil {
		backends = netdef.Backends()
	}

	lc := NewLifecycle(d)
	lc.Reset()
	report = &Report{}

	for _, b := range backends {
		if _, ok := d.Writer(b); !ok {
			continue
		}
		br := BackendReport{Backend: b}

		n, err := d.WriteAll(st, b, opts.Root)
		br.Definitions = n
		if err != nil {
			report.Backends = append(report.Backends, br)
			return report, err
		}
		if err := lc.Finish(st, b, opts.Root); err != nil {
			report.Backends = append(report.Backends, br)
			return report, err
		}
		br.Written = d.WrittenFiles(b)
		sort.Strings(br.Written)

		removed, err := lc.Cleanup(st, b, opts.Root)
		br.Removed = removed
		if err != nil {
			report.Backends = append(report.Backends, br)
			return report, err
		}

		if n > 0 && opts.GeneratorDir != "" {
			if err := lc.Enable(b, opts.GeneratorDir); err != nil {
				report.Backends = append(report.Backends, br)
				return report, err
			}
			br.Enabled = true
		}
		report.Backends = append(report.Backends, br)
	}

	d.log.Info("generation complete", "definitions", st.Len(), "written", report.Written())
	return report, nil
}
