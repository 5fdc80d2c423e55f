package parser

import (
	"errors"
	"fmt"

	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
)

// Options configures a Parser.
type Options struct {
	// Subdir is the per-tier directory holding documents ("netgen").
	Subdir string
	// Order selects how hierarchy tiers combine.
	Order HierarchyOrder
	Logger *logging.Logger
}

// Parser accumulates definitions from documents and API fragments until a
// state import drains it. It is not safe for concurrent use; Session
// serializes access.
type Parser struct {
	opts    Options
	log     *logging.Logger
	table   *netdef.Table
	globals netdef.Globals
	sources []string
}

// New creates an empty accumulator.
func New(opts Options) *Parser {
	if opts.Subdir == "" {
		opts.Subdir = DefaultSubdir
	}
	if opts.Order == "" {
		opts.Order = OrderBasename
	}
	log := opts.Logger
	if log == nil {
		log = logging.Default()
	}
	return &Parser{
		opts:  opts,
		log:   log.WithComponent("parser"),
		table: netdef.NewTable(),
	}
}

// LoadFile reads one document and merges every definition in it. A failing
// file leaves the accumulator unchanged.
func (p *Parser) LoadFile(path string) error {
	node, err := ReadDocument(path)
	if err != nil {
		return err
	}
	dec := &decoder{path: path}
	doc, err := dec.decode(node)
	if err != nil {
		return err
	}

	work := p.table.Clone()
	for _, f := range doc.fragments {
		if err := work.Merge(f.def); err != nil {
			var kc *netdef.KindConflict
			if errors.As(err, &kc) {
				return &ConflictError{Path: path, Line: f.line, Column: f.col, Conflict: kc}
			}
			return &ParseError{Path: path, Line: f.line, Column: f.col, Err: err}
		}
	}

	p.table = work
	p.globals.Merge(doc.globals)
	p.sources = append(p.sources, path)
	p.log.Debug("loaded document", "path", path, "definitions", len(doc.fragments))
	return nil
}

// Merge folds an API-built fragment into the accumulator. The kind may be
// left unset when extending an existing definition.
func (p *Parser) Merge(frag *netdef.Definition) error {
	if frag == nil || frag.ID == "" {
		return errors.New("fragment requires an id")
	}
	if err := p.table.Check(frag); err != nil {
		var kc *netdef.KindConflict
		if errors.As(err, &kc) {
			return &ConflictError{Conflict: kc}
		}
		return err
	}
	if _, exists := p.table.Get(frag.ID); !exists && frag.Kind == netdef.KindNone {
		return fmt.Errorf("%s: new definition requires a kind", frag.ID)
	}
	return p.table.Merge(frag)
}

// MergeGlobals applies API-built global settings.
func (p *Parser) MergeGlobals(g netdef.Globals) {
	p.globals.Merge(g)
}

// Table exposes the accumulated definitions. Callers must not modify it.
func (p *Parser) Table() *netdef.Table {
	return p.table
}

// Globals returns the accumulated global settings.
func (p *Parser) Globals() netdef.Globals {
	return p.globals
}

// Reset discards everything accumulated so far.
func (p *Parser) Reset() {
	p.table = netdef.NewTable()
	p.globals = netdef.Globals{}
	p.sources = nil
}

// Len returns the number of accumulated definitions.
func (p *Parser) Len() int {
	return p.table.Len()
}

// Sources lists the files loaded since the last reset, in load order.
func (p *Parser) Sources() []string {
	return append([]string(nil), p.sources...)
}

type snapshot struct {
	table   *netdef.Table
	globals netdef.Globals
	sources []string
}

func (p *Parser) snapshot() snapshot {
	return snapshot{table: p.table.Clone(), globals: p.globals.Clone(), sources: p.Sources()}
}

func (p *Parser) restore(s snapshot) {
	p.table, p.globals, p.sources = s.table, s.globals, s.sources
}
