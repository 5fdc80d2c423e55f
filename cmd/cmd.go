// Package cmd implements the netgen subcommands. main parses flags and
// calls the Run functions here; each returns an error whose class maps to
// the process exit status through ExitCode.
package cmd

import (
	"fmt"
	"io"
	"os"

	"grimm.is/netgen/internal/config"
	"grimm.is/netgen/internal/i18n"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/metrics"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/network"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/session"
	"grimm.is/netgen/internal/state"
)

// Printer writes user-facing output in the system locale.
var Printer = i18n.NewCLIPrinter()

// Options are the flags shared by every subcommand.
type Options struct {
	ConfigFile string
	// RootDir overrides root_dir from the config file.
	RootDir string
	// LogOutput overrides the log destination.
	LogOutput io.Writer
}

// runtime is the loaded configuration plus what is built from it.
type runtime struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Registry
	closers []io.Closer
}

func load(opts Options) (*runtime, error) {
	cfg, err := config.LoadFile(opts.ConfigFile)
	if err != nil {
		return nil, err
	}
	if opts.RootDir != "" {
		cfg.RootDir = opts.RootDir
	}

	rt := &runtime{cfg: cfg, metrics: metrics.New()}
	rt.log = rt.newLogger(opts.LogOutput)
	logging.SetDefault(rt.log)
	return rt, nil
}

func (rt *runtime) newLogger(out io.Writer) *logging.Logger {
	lc := logging.DefaultConfig()
	if rt.cfg.Log != nil {
		lc.Level, _ = logging.ParseLevel(rt.cfg.Log.Level)
		lc.JSON = rt.cfg.Log.JSON
	}
	switch {
	case out != nil:
		lc.Output = out
	case rt.cfg.Log != nil && rt.cfg.Log.Kmsg:
		w, err := logging.OpenKmsg(logging.KmsgPath, logging.GetPrefix())
		if err != nil {
			fmt.Fprintf(os.Stderr, "kmsg unavailable, logging to stderr: %v\n", err)
			break
		}
		rt.closers = append(rt.closers, w)
		lc.Output = w
	}
	return logging.New(lc)
}

func (rt *runtime) close() {
	for _, c := range rt.closers {
		_ = c.Close()
	}
	rt.closers = nil
}

// resolver picks the link resolver: configured devices first, the running
// kernel when generating for "/", and nothing for an alternate root.
func (rt *runtime) resolver(root string) state.LinkResolver {
	if r := rt.cfg.Resolver(); r != nil {
		return r
	}
	if root == "/" {
		return network.NewResolver(network.DefaultNetlinker)
	}
	return nil
}

func (rt *runtime) session(root, generatorDir string) (*session.Session, error) {
	backends, err := rt.cfg.BackendList()
	if err != nil {
		return nil, err
	}
	def, err := netdef.ParseBackend(rt.cfg.DefaultBackend)
	if err != nil {
		return nil, err
	}
	order, err := parser.ParseOrder(rt.cfg.Hierarchy.Order)
	if err != nil {
		return nil, err
	}
	return session.New(session.Options{
		Root:           root,
		GeneratorDir:   generatorDir,
		Subdir:         rt.cfg.Hierarchy.Subdir,
		Order:          order,
		DefaultBackend: def,
		Backends:       backends,
		Resolver:       rt.resolver(root),
		Logger:         rt.log,
		Metrics:        rt.metrics,
	}), nil
}

// loaded returns a session holding the imported hierarchy.
func (rt *runtime) loaded(root, generatorDir string) (*session.Session, *state.State, error) {
	s, err := rt.session(root, generatorDir)
	if err != nil {
		return nil, nil, err
	}
	if err := s.LoadHierarchy(rt.cfg.HierarchyRoot()); err != nil {
		return nil, nil, err
	}
	st, err := s.Import()
	if err != nil {
		return nil, nil, err
	}
	return s, st, nil
}
