package state

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/validation"
)

// Source is an accumulator a State can be imported from.
type Source interface {
	Table() *netdef.Table
	Globals() netdef.Globals
	Reset()
}

// LinkResolver answers questions about devices present on the system. It
// resolves references that no definition provides and match rules of
// physical definitions.
type LinkResolver interface {
	LinkExists(name string) bool
	MatchesAny(m netdef.Match) bool
}

type importOptions struct {
	resolver LinkResolver
	fallback netdef.Backend
	log      *logging.Logger
}

// Option configures Import.
type Option func(*importOptions)

// WithResolver sets the resolver used for references to system devices.
func WithResolver(r LinkResolver) Option {
	return func(o *importOptions) { o.resolver = r }
}

// WithDefaultBackend sets the backend used when neither a definition nor the
// document globals choose one.
func WithDefaultBackend(b netdef.Backend) Option {
	return func(o *importOptions) {
		if b != netdef.BackendNone {
			o.fallback = b
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(o *importOptions) { o.log = l }
}

var validate = validation.New()

// Import validates the accumulated definitions and turns them into a State.
// On success src is drained; on failure src is left untouched and the
// returned error is ValidationErrors.
func Import(src Source, opts ...Option) (*State, error) {
	o := importOptions{fallback: netdef.DefaultBackend}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Default()
	}
	log := o.log.WithComponent("state")

	table := src.Table().Clone()
	globals := src.Globals().Clone()

	if errs := check(table); errs.HasErrors() {
		log.Warn("import rejected", "errors", len(errs))
		return nil, errs
	}

	st := &State{table: table, globals: globals, fallback: o.fallback}
	st.resolve(o.resolver)

	src.Reset()
	log.Debug("imported", "definitions", st.Len(), "unresolved", len(st.unresolved))
	return st, nil
}

// check runs tag validation and the structural rules tags cannot express.
func check(table *netdef.Table) ValidationErrors {
	var errs ValidationErrors
	owner := make(map[string]string)

	for _, d := range table.Ordered() {
		if err := validate.Struct(d); err != nil {
			var verrs validator.ValidationErrors
			if !errors.As(err, &verrs) {
				errs = append(errs, ValidationError{ID: d.ID, Message: err.Error()})
				continue
			}
			for _, fe := range verrs {
				errs = append(errs, ValidationError{ID: d.ID, Field: fieldPath(fe), Message: validation.Message(fe)})
			}
		}

		switch d.Kind {
		case netdef.KindVLAN:
			if d.Link == nil {
				errs = append(errs, ValidationError{ID: d.ID, Field: "link", Message: "missing 'link' property"})
			} else if *d.Link == d.ID {
				errs = append(errs, ValidationError{ID: d.ID, Field: "link", Message: "cannot use itself as link"})
			}
			if d.VLANID == nil {
				errs = append(errs, ValidationError{ID: d.ID, Field: "id", Message: "missing 'id' property"})
			} else if err := validation.ValidateVLANID(*d.VLANID); err != nil {
				errs = append(errs, ValidationError{ID: d.ID, Field: "id", Message: err.Error()})
			}
		case netdef.KindTunnel:
			if d.Mode == nil {
				errs = append(errs, ValidationError{ID: d.ID, Field: "mode", Message: "missing 'mode' property"})
			} else if err := validation.ValidateTunnelMode(*d.Mode); err != nil {
				errs = append(errs, ValidationError{ID: d.ID, Field: "mode", Message: err.Error()})
			}
		}

		if len(d.Interfaces) > 0 {
			switch d.Kind {
			case netdef.KindBridge, netdef.KindBond, netdef.KindVRF:
			default:
				errs = append(errs, ValidationError{ID: d.ID, Field: "interfaces", Message: fmt.Sprintf("%s definitions cannot have members", d.Kind)})
				continue
			}
		}
		for _, member := range d.Interfaces {
			if member == d.ID {
				errs = append(errs, ValidationError{ID: d.ID, Field: "interfaces", Message: "cannot contain itself"})
				continue
			}
			if prev, ok := owner[member]; ok && prev != d.ID {
				errs = append(errs, ValidationError{ID: d.ID, Field: "interfaces",
					Message: fmt.Sprintf("interface '%s' is already assigned to %s", member, prev)})
				continue
			}
			owner[member] = d.ID
		}
	}
	return errs
}

// fieldPath turns a validator namespace ("Definition.Settings.match.macaddress")
// into a document key path ("match.macaddress").
func fieldPath(fe validator.FieldError) string {
	parts := strings.Split(fe.Namespace(), ".")
	if len(parts) > 0 {
		parts = parts[1:]
	}
	out := parts[:0]
	for _, p := range parts {
		if p != "Settings" {
			out = append(out, strings.ToLower(p))
		}
	}
	return strings.Join(out, ".")
}

// resolve fills in parents, backends and virtual-switch membership.
func (s *State) resolve(resolver LinkResolver) {
	exists := func(name string) bool {
		if _, ok := s.table.Get(name); ok {
			return true
		}
		return resolver != nil && resolver.LinkExists(name)
	}

	for _, d := range s.table.Ordered() {
		for _, member := range d.Interfaces {
			if m, ok := s.table.Get(member); ok {
				m.Parent = d.ID
			} else if !exists(member) {
				s.unresolved = append(s.unresolved, Reference{From: d.ID, Field: "interfaces", To: member})
			}
		}
		if d.Link != nil && !exists(*d.Link) {
			s.unresolved = append(s.unresolved, Reference{From: d.ID, Field: "link", To: *d.Link})
		}
		if resolver != nil && d.Kind.Physical() && !d.Match.IsZero() && !resolver.MatchesAny(d.Match) {
			s.unresolved = append(s.unresolved, Reference{From: d.ID, Field: "match", To: d.Match.String()})
		}
	}

	for _, d := range s.table.Ordered() {
		d.Resolved = s.backendFor(d)
	}

	for _, d := range s.table.Ordered() {
		if d.Parent == "" {
			continue
		}
		if parent, ok := s.table.Get(d.Parent); ok && parent.Resolved == netdef.BackendOpenVSwitch {
			d.VirtualSwitch = true
		}
	}
}

// backendFor picks the backend that owns d: its own renderer, then the
// document renderer, then the fallback. Only switch-side entities (ports,
// and bridges, bonds or fake VLAN bridges with an openvswitch block) are
// owned by the virtual switch implicitly; interfaces with an openvswitch
// block keep their owner and reach the switch through UsesVirtualSwitch.
func (s *State) backendFor(d *netdef.Definition) netdef.Backend {
	switch {
	case d.Backend != netdef.BackendNone:
		return d.Backend
	case d.Kind == netdef.KindPort,
		switchSide(d.Kind) && !d.OpenVSwitch.IsZero():
		return netdef.BackendOpenVSwitch
	case s.globals.Backend != netdef.BackendNone:
		return s.globals.Backend
	}
	return s.fallback
}

func switchSide(k netdef.Kind) bool {
	return k == netdef.KindBridge || k == netdef.KindBond || k == netdef.KindVLAN
}
