// Package session ties the pipeline together: one accumulator, one imported
// State and one generation run record, guarded by a mutex so concurrent
// callers never interleave a parse with a generation.
package session

import (
	"errors"
	"fmt"
	"sync"

	"grimm.is/netgen/internal/backend/networkd"
	"grimm.is/netgen/internal/backend/nm"
	"grimm.is/netgen/internal/backend/ovs"
	"grimm.is/netgen/internal/emit"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/metrics"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/state"
)

// ErrUnknownDefinition is returned for ids the current State does not hold.
var ErrUnknownDefinition = errors.New("unknown definition")

// Options configures a Session. The zero value generates into "/" with the
// default backend and no enablement.
type Options struct {
	Root         string
	GeneratorDir string

	Subdir         string
	Order          parser.HierarchyOrder
	DefaultBackend netdef.Backend
	Backends       []netdef.Backend

	// Resolver answers for links no definition provides.
	Resolver state.LinkResolver

	// Writers replaces the built-in backend writers.
	Writers []generate.Writer

	Logger  *logging.Logger
	Metrics *metrics.Registry
}

// Session is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	opts    Options
	log     *logging.Logger
	metrics *metrics.Registry

	parser     *parser.Parser
	state      *state.State
	dispatcher *generate.Dispatcher
	lifecycle  *generate.Lifecycle
}

// DefaultWriters returns the networkd, NetworkManager and Open vSwitch writers.
func DefaultWriters(log *logging.Logger) []generate.Writer {
	return []generate.Writer{networkd.New(log), nm.New(log), ovs.New(log)}
}

// New creates a session.
func New(opts Options) *Session {
	if opts.Root == "" {
		opts.Root = "/"
	}
	if opts.DefaultBackend == netdef.BackendNone {
		opts.DefaultBackend = netdef.DefaultBackend
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.Get()
	}
	writers := opts.Writers
	if writers == nil {
		writers = DefaultWriters(log)
	}

	d := generate.NewDispatcher(log, m, writers...)
	return &Session{
		opts:       opts,
		log:        log.WithComponent("session"),
		metrics:    m,
		parser:     parser.New(parser.Options{Subdir: opts.Subdir, Order: opts.Order, Logger: log}),
		state:      state.Empty(),
		dispatcher: d,
		lifecycle:  generate.NewLifecycle(d),
	}
}

// Root returns the generation root.
func (s *Session) Root() string {
	return s.opts.Root
}

// LoadFile merges one document into the accumulator.
func (s *Session) LoadFile(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.parser.LoadFile(path); err != nil {
		s.metrics.RecordError("parse")
		return err
	}
	return nil
}

// LoadHierarchy merges every document under root.
func (s *Session) LoadHierarchy(root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.parser.LoadHierarchy(root); err != nil {
		s.metrics.RecordError("parse")
		return err
	}
	return nil
}

// Merge adds a definition built through the API.
func (s *Session) Merge(def *netdef.Definition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parser.Merge(def)
}

// MergeGlobals adds global settings built through the API.
func (s *Session) MergeGlobals(g netdef.Globals) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parser.MergeGlobals(g)
}

// Import validates the accumulator and replaces the current State with it.
// The previous State is kept when validation fails.
func (s *Session) Import() (*state.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.importLocked()
}

func (s *Session) importLocked() (*state.State, error) {
	files := len(s.parser.Sources())
	st, err := state.Import(s.parser,
		state.WithResolver(s.opts.Resolver),
		state.WithDefaultBackend(s.opts.DefaultBackend),
		state.WithLogger(s.log),
	)
	if err != nil {
		s.metrics.RecordError("import")
		return nil, err
	}
	s.state = st
	s.lifecycle.Reset()
	s.metrics.RecordImport(files, st.Len(), len(st.Unresolved()))
	return st, nil
}

// Pending returns how many definitions are accumulated but not imported.
func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.parser.Len()
}

// State returns the current State, empty before the first import.
func (s *Session) State() *state.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reset drops accumulated and imported definitions and forgets the current
// run. It returns how many definitions were cleared.
func (s *Session) Reset() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.state.Len() + s.parser.Len()
	s.parser.Reset()
	s.state = state.Empty()
	s.lifecycle.Reset()
	s.log.Debug("session reset", "cleared", n)
	return n
}

// Generate runs every configured backend over the current State.
func (s *Session) Generate() (*generate.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return generate.Run(s.state, s.dispatcher, generate.Options{
		Root:         s.opts.Root,
		GeneratorDir: s.opts.GeneratorDir,
		Backends:     s.opts.Backends,
	})
}

// Write renders one definition for backend b into root.
func (s *Session) Write(b netdef.Backend, id, root string) (generate.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	def, ok := s.state.Get(id)
	if !ok {
		return generate.NotApplicable, fmt.Errorf("%w: %s", ErrUnknownDefinition, id)
	}
	return s.dispatcher.Write(s.state, def, b, root)
}

// Finish writes backend b's aggregate output for this run.
func (s *Session) Finish(b netdef.Backend, root string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Finish(s.state, b, root)
}

// Cleanup removes backend b's stale artifacts under root.
func (s *Session) Cleanup(b netdef.Backend, root string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Cleanup(s.state, b, root)
}

// Enable creates backend b's enablement links under generatorDir.
func (s *Session) Enable(b netdef.Backend, generatorDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lifecycle.Enable(b, generatorDir)
}

// Emit writes one definition, or the whole State when id is empty, as a
// document under root. hint names the full-state document.
func (s *Session) Emit(id, root, hint string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var def *netdef.Definition
	if id != "" {
		d, ok := s.state.Get(id)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownDefinition, id)
		}
		def = d
	}
	return emit.Write(s.state, def, root, hint)
}

// FilenameByID returns the document that first declared id.
func (s *Session) FilenameByID(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FilenameByID(id)
}
