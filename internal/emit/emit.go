// Package emit serializes definitions back into version 2 documents.
//
// Output is deterministic: definition keys are written in a fixed order,
// passthrough maps are sorted, and definitions keep the State order within
// their section. Loading an emitted document yields an equal table.
package emit

import (
	"fmt"
	"path"
	"strings"

	"gopkg.in/yaml.v2"

	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
	"grimm.is/netgen/internal/validation"
)

const (
	// Dir is where emitted documents go, relative to the root.
	Dir = "etc/netgen"

	// DefaultHint names the full-state document when no hint is given.
	DefaultHint = "netgen"
)

// Marshal renders def, or the whole state when def is nil.
func Marshal(st *state.State, def *netdef.Definition) ([]byte, error) {
	network := yaml.MapSlice{{Key: "version", Value: 2}}

	var defs []*netdef.Definition
	if def != nil {
		defs = []*netdef.Definition{def}
	} else {
		g := st.Globals()
		if g.Backend != netdef.BackendNone {
			network = append(network, yaml.MapItem{Key: "renderer", Value: renderer(g.Backend)})
		}
		if !g.OpenVSwitch.IsZero() {
			network = append(network, yaml.MapItem{Key: "openvswitch", Value: value(g.OpenVSwitch)})
		}
		defs = st.Definitions()
	}

	for _, kind := range netdef.Kinds() {
		var section yaml.MapSlice
		for _, d := range defs {
			if d.Kind == kind {
				section = append(section, yaml.MapItem{Key: d.ID, Value: definition(d)})
			}
		}
		if len(section) > 0 {
			network = append(network, yaml.MapItem{Key: kind.Section(), Value: section})
		}
	}

	out, err := yaml.Marshal(yaml.MapSlice{{Key: "network", Value: network}})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return out, nil
}

// Path returns where Write puts a document, relative to the root.
func Path(def *netdef.Definition, hint string) (string, error) {
	if def != nil {
		return path.Join(Dir, "10-netgen-"+def.ID+".yaml"), nil
	}
	hint = strings.TrimSuffix(hint, ".yaml")
	if hint == "" {
		hint = DefaultHint
	}
	if err := validation.ValidateFileHint(hint); err != nil {
		return "", err
	}
	return path.Join(Dir, hint+".yaml"), nil
}

// Write emits def (or the whole state) under root and returns the path it
// wrote, relative to root. hint names the full-state document.
func Write(st *state.State, def *netdef.Definition, root, hint string) (string, error) {
	rel, err := Path(def, hint)
	if err != nil {
		return "", err
	}
	data, err := Marshal(st, def)
	if err != nil {
		return "", err
	}
	if err := generate.WriteFile(root, rel, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", rel, err)
	}
	logging.WithComponent("emit").Debug("emitted document", "path", rel, "definitions", count(st, def))
	return rel, nil
}

func count(st *state.State, def *netdef.Definition) int {
	if def != nil {
		return 1
	}
	return st.Len()
}

func renderer(b netdef.Backend) string {
	if b == netdef.BackendOpenVSwitch {
		return "openvswitch"
	}
	return b.String()
}

// definition lays out the keys in the order documents usually use.
func definition(d *netdef.Definition) yaml.MapSlice {
	var m yaml.MapSlice
	add := func(key string, v interface{}) {
		m = append(m, yaml.MapItem{Key: key, Value: v})
	}
	str := func(key string, p *string) {
		if p != nil {
			add(key, *p)
		}
	}
	boolean := func(key string, p *bool) {
		if p != nil {
			add(key, *p)
		}
	}
	integer := func(key string, p *int) {
		if p != nil {
			add(key, *p)
		}
	}

	if d.Backend != netdef.BackendNone {
		add("renderer", renderer(d.Backend))
	}
	if !d.Match.IsZero() {
		var match yaml.MapSlice
		for _, kv := range []struct {
			key string
			p   *string
		}{{"name", d.Match.Name}, {"macaddress", d.Match.MACAddress}, {"driver", d.Match.Driver}} {
			if kv.p != nil {
				match = append(match, yaml.MapItem{Key: kv.key, Value: *kv.p})
			}
		}
		add("match", match)
	}
	str("set-name", d.SetName)
	boolean("wakeonlan", d.WakeOnLAN)

	str("link", d.Link)
	integer("id", d.VLANID)
	str("mode", d.Mode)
	str("local", d.Local)
	str("remote", d.Remote)

	boolean("dhcp4", d.DHCP4)
	boolean("dhcp6", d.DHCP6)
	boolean("accept-ra", d.AcceptRA)
	boolean("critical", d.Critical)
	boolean("optional", d.Optional)
	integer("mtu", d.MTU)
	str("macaddress", d.MACAddress)

	if len(d.Addresses) > 0 {
		add("addresses", d.Addresses)
	}
	str("gateway4", d.Gateway4)
	str("gateway6", d.Gateway6)
	if len(d.Nameservers) > 0 || len(d.Search) > 0 {
		var ns yaml.MapSlice
		if len(d.Nameservers) > 0 {
			ns = append(ns, yaml.MapItem{Key: "addresses", Value: d.Nameservers})
		}
		if len(d.Search) > 0 {
			ns = append(ns, yaml.MapItem{Key: "search", Value: d.Search})
		}
		add("nameservers", ns)
	}
	if len(d.Routes) > 0 {
		routes := make([]yaml.MapSlice, 0, len(d.Routes))
		for _, r := range d.Routes {
			routes = append(routes, route(r))
		}
		add("routes", routes)
	}
	if len(d.Interfaces) > 0 {
		add("interfaces", d.Interfaces)
	}

	if !d.Parameters.IsZero() {
		add("parameters", value(d.Parameters))
	}
	if !d.AccessPoints.IsZero() {
		add("access-points", value(d.AccessPoints))
	}
	if !d.OpenVSwitch.IsZero() {
		add("openvswitch", value(d.OpenVSwitch))
	}
	if !d.Passthrough.IsZero() {
		add("networkmanager", yaml.MapSlice{{Key: "passthrough", Value: value(d.Passthrough)}})
	}
	return m
}

func route(r netdef.Route) yaml.MapSlice {
	m := yaml.MapSlice{{Key: "to", Value: r.To}}
	if r.Via != "" {
		m = append(m, yaml.MapItem{Key: "via", Value: r.Via})
	}
	if r.From != "" {
		m = append(m, yaml.MapItem{Key: "from", Value: r.From})
	}
	if r.Metric != nil {
		m = append(m, yaml.MapItem{Key: "metric", Value: *r.Metric})
	}
	if r.Table != nil {
		m = append(m, yaml.MapItem{Key: "table", Value: *r.Table})
	}
	if r.OnLink != nil {
		m = append(m, yaml.MapItem{Key: "on-link", Value: *r.OnLink})
	}
	return m
}

// value converts a passthrough Value. Scalars stay strings so they read
// back byte for byte.
func value(v netdef.Value) interface{} {
	switch v.Kind {
	case netdef.ValueScalar:
		return v.Scalar
	case netdef.ValueList:
		out := make([]interface{}, 0, len(v.List))
		for _, item := range v.List {
			out = append(out, value(item))
		}
		return out
	case netdef.ValueMap:
		out := yaml.MapSlice{}
		for _, k := range v.Keys() {
			out = append(out, yaml.MapItem{Key: k, Value: value(v.Map[k])})
		}
		return out
	}
	return nil
}
