package parser

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"grimm.is/netgen/internal/netdef"
)

// SupportedVersion is the only document version accepted.
const SupportedVersion = 2

// fragment is a definition decoded from a document, with the position of
// its id for error reporting.
type fragment struct {
	def  *netdef.Definition
	line int
	col  int
}

// document is the decoded content of one source.
type document struct {
	globals   netdef.Globals
	fragments []fragment
}

// decoder converts a node tree into fragments. It only records the first
// error it hits.
type decoder struct {
	path string
}

func (d *decoder) errorf(n *yaml.Node, format string, args ...any) error {
	pe := &ParseError{Path: d.path, Err: fmt.Errorf(format, args...)}
	if n != nil {
		pe.Line, pe.Column = n.Line, n.Column
	}
	return pe
}

func (d *decoder) decode(root *yaml.Node) (*document, error) {
	doc := &document{}
	if root == nil {
		return doc, nil
	}
	root = resolve(root)
	if isNull(root) {
		return doc, nil
	}
	if root.Kind != yaml.MappingNode {
		return nil, d.errorf(root, "expected a mapping at top level")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], resolve(root.Content[i+1])
		if key.Value != "network" {
			return nil, d.errorf(key, "unknown key '%s'", key.Value)
		}
		if err := d.decodeNetwork(doc, val); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (d *decoder) decodeNetwork(doc *document, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "expected mapping for 'network'")
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		switch key.Value {
		case "version":
			var v int
			if err := val.Decode(&v); err != nil {
				return d.errorf(val, "invalid version: %v", err)
			}
			if v != SupportedVersion {
				return d.errorf(val, "only version %d configuration files are supported", SupportedVersion)
			}
		case "renderer":
			b, err := netdef.ParseBackend(val.Value)
			if err != nil || val.Kind != yaml.ScalarNode {
				return d.errorf(val, "unknown renderer '%s'", val.Value)
			}
			doc.globals.Backend = b
		case "openvswitch":
			v, err := d.value(val)
			if err != nil {
				return err
			}
			doc.globals.OpenVSwitch = netdef.MergeValue(doc.globals.OpenVSwitch, v)
		default:
			kind, ok := netdef.KindFromSection(key.Value)
			if !ok {
				return d.errorf(key, "unknown key '%s'", key.Value)
			}
			if err := d.decodeSection(doc, kind, val); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *decoder) decodeSection(doc *document, kind netdef.Kind, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "expected mapping for '%s'", kind.Section())
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		if key.Kind != yaml.ScalarNode || key.Value == "" {
			return d.errorf(key, "invalid definition id")
		}
		def := netdef.New(key.Value, kind)
		def.Filename = d.path
		if err := d.decodeDefinition(def, val); err != nil {
			return err
		}
		doc.fragments = append(doc.fragments, fragment{def: def, line: key.Line, col: key.Column})
	}
	return nil
}

func (d *decoder) decodeDefinition(def *netdef.Definition, n *yaml.Node) error {
	if isNull(n) {
		return nil
	}
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "%s: expected mapping", def.ID)
	}

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		h, ok := definitionKeys[key.Value]
		if !ok {
			return d.errorf(key, "%s: unknown key '%s'", def.ID, key.Value)
		}
		if !h.allows(def.Kind) {
			return d.errorf(key, "%s: key '%s' is not valid for %s definitions", def.ID, key.Value, def.Kind)
		}
		if err := h.fn(d, def, val); err != nil {
			return err
		}
	}
	return nil
}

// value converts an arbitrary node into a passthrough Value.
func (d *decoder) value(n *yaml.Node) (netdef.Value, error) {
	n = resolve(n)
	switch n.Kind {
	case yaml.ScalarNode:
		if isNull(n) {
			return netdef.Value{}, nil
		}
		return netdef.ScalarValue(n.Value), nil
	case yaml.SequenceNode:
		items := make([]netdef.Value, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := d.value(c)
			if err != nil {
				return netdef.Value{}, err
			}
			items = append(items, v)
		}
		return netdef.ListValue(items...), nil
	case yaml.MappingNode:
		m := make(map[string]netdef.Value, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind != yaml.ScalarNode {
				return netdef.Value{}, d.errorf(key, "expected scalar key")
			}
			v, err := d.value(n.Content[i+1])
			if err != nil {
				return netdef.Value{}, err
			}
			m[key.Value] = v
		}
		return netdef.MapValue(m), nil
	}
	return netdef.Value{}, d.errorf(n, "unsupported node")
}

func (d *decoder) strings(n *yaml.Node, what string) ([]string, error) {
	if n.Kind != yaml.SequenceNode {
		return nil, d.errorf(n, "expected sequence for '%s'", what)
	}
	out := make([]string, 0, len(n.Content))
	for _, c := range n.Content {
		c = resolve(c)
		if c.Kind != yaml.ScalarNode {
			return nil, d.errorf(c, "expected scalar in '%s'", what)
		}
		out = append(out, c.Value)
	}
	return out, nil
}

// resolve follows aliases and unwraps document nodes.
func resolve(n *yaml.Node) *yaml.Node {
	for n != nil {
		switch n.Kind {
		case yaml.AliasNode:
			n = n.Alias
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		default:
			return n
		}
	}
	return n
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}
