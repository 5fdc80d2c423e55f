package cmd

import (
	"io"

	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/i18n"
)

// GenerateOptions configures a generation run.
type GenerateOptions struct {
	Options
	// GeneratorDir receives enablement links; empty skips enablement.
	GeneratorDir string
}

// RunGenerate loads the hierarchy, generates every backend into the root
// and prints a per-backend summary to w.
func RunGenerate(w io.Writer, opts GenerateOptions) error {
	rt, err := load(opts.Options)
	if err != nil {
		return err
	}
	defer rt.close()

	genDir := opts.GeneratorDir
	if genDir == "" {
		genDir = rt.cfg.GeneratorDir
	}
	report, err := rt.generate(rt.cfg.RootDir, genDir)
	if report != nil {
		printReport(w, report)
	}
	if err != nil {
		return err
	}
	return rt.writeMetrics()
}

func (rt *runtime) generate(root, genDir string) (*generate.Report, error) {
	s, _, err := rt.loaded(root, genDir)
	if err != nil {
		rt.metrics.RecordError("load")
		return nil, err
	}
	return s.Generate()
}

func (rt *runtime) writeMetrics() error {
	if rt.cfg.Metrics == nil || rt.cfg.Metrics.Textfile == "" {
		return nil
	}
	return rt.metrics.WriteTextfile(rt.cfg.Metrics.Textfile)
}

func printReport(w io.Writer, report *generate.Report) {
	for _, b := range report.Backends {
		Printer.Fprintf(w, i18n.MsgGenerated, b.Backend, b.Definitions, len(b.Written), len(b.Removed))
		if b.Enabled {
			Printer.Fprintf(w, i18n.MsgEnabled, b.Backend)
		}
	}
}
