// Package ovs renders Open vSwitch configuration as oneshot systemd units
// that drive ovs-vsctl.
//
// Every definition taking part in the virtual switch gets its own unit:
//   - bridges are created with add-br, VLAN fake bridges with a parent and tag
//   - bonds are created on their parent bridge with add-bond
//   - patch ports are added with their peer
//   - other members are attached with add-port
//
// An aggregate unit applies the global openvswitch settings and pulls in all
// per-definition units; it is the only unit that has to be enabled.
package ovs

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"grimm.is/netgen/internal/backend"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

const (
	UnitDir    = "run/systemd/system"
	UnitPrefix = "netgen-ovs-"
	GlobalUnit = "netgen-ovs.service"

	// Vsctl is the ovs-vsctl binary the units call.
	Vsctl = "/usr/bin/ovs-vsctl"
)

const unitTemplate = `[Unit]
Description=OpenVSwitch configuration for {{id}}
DefaultDependencies=no
Wants=ovsdb-server.service
After=ovsdb-server.service
{{after}}Before=network.target

[Service]
Type=oneshot
RemainAfterExit=yes
{{exec}}`

// UnitName returns the unit generated for a definition.
func UnitName(id string) string {
	return UnitPrefix + backend.SystemdEscape(id) + ".service"
}

// Writer is the Open vSwitch backend.
type Writer struct {
	log *logging.Logger
}

// New creates the Open vSwitch writer.
func New(log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Default()
	}
	return &Writer{log: log.WithComponent("ovs")}
}

func (w *Writer) Backend() netdef.Backend { return netdef.BackendOpenVSwitch }

func (w *Writer) Write(st *state.State, def *netdef.Definition, root string) ([]string, error) {
	cmds, err := commands(st, def)
	if err != nil {
		return nil, err
	}
	if len(cmds) == 0 {
		w.log.Debug("nothing to configure", "id", def.ID)
		return nil, nil
	}

	var after string
	if def.Parent != "" {
		after = "After=" + UnitName(def.Parent) + "\n"
	}
	if def.Kind == netdef.KindVLAN && def.Link != nil {
		after += "After=" + UnitName(*def.Link) + "\n"
	}
	body := backend.HeaderFor(def.Filename) + backend.Render(unitTemplate, map[string]any{
		"id":    def.ID,
		"after": after,
		"exec":  execLines(cmds),
	})

	rel := path.Join(UnitDir, UnitName(def.ID))
	if err := generate.WriteFile(root, rel, []byte(body), 0o644); err != nil {
		return nil, err
	}
	return []string{rel}, nil
}

// Finish writes the aggregate unit: global settings plus a dependency on
// every per-definition unit.
func (w *Writer) Finish(st *state.State, root string) ([]string, error) {
	globals := st.Globals().OpenVSwitch
	var cmds []string
	cmds = append(cmds, columns("open_vswitch", ".", "external-ids", globals)...)
	cmds = append(cmds, columns("open_vswitch", ".", "other-config", globals)...)
	if len(cmds) == 0 {
		cmds = []string{Vsctl + " --version"}
	}

	var after strings.Builder
	for _, def := range st.RoutedTo(netdef.BackendOpenVSwitch) {
		unit := UnitName(def.ID)
		after.WriteString("Wants=" + unit + "\nAfter=" + unit + "\n")
	}
	body := backend.HeaderFor("") + backend.Render(unitTemplate, map[string]any{
		"id":    "global settings",
		"after": after.String(),
		"exec":  execLines(cmds),
	}) + "\n[Install]\nWantedBy=multi-user.target\n"

	rel := path.Join(UnitDir, GlobalUnit)
	if err := generate.WriteFile(root, rel, []byte(body), 0o644); err != nil {
		return nil, err
	}
	return []string{rel}, nil
}

func (w *Writer) Artifacts(root string) ([]string, error) {
	files, err := generate.ListFiles(root, UnitDir, "netgen-ovs")
	if err != nil {
		return nil, err
	}
	out := files[:0]
	for _, f := range files {
		if strings.HasSuffix(f, ".service") {
			out = append(out, f)
		}
	}
	return out, nil
}

func (w *Writer) Owner(_ *state.State, rel string) (string, bool, bool) {
	dir, name := path.Split(rel)
	if strings.TrimSuffix(dir, "/") != UnitDir {
		return "", false, false
	}
	if name == GlobalUnit {
		return "", true, true
	}
	if !strings.HasPrefix(name, UnitPrefix) || !strings.HasSuffix(name, ".service") {
		return "", false, false
	}
	id, err := backend.SystemdUnescape(strings.TrimSuffix(strings.TrimPrefix(name, UnitPrefix), ".service"))
	if err != nil || id == "" {
		return "", false, false
	}
	return id, false, true
}

// Units enables the aggregate unit, which pulls in the rest.
func (w *Writer) Units() []generate.Unit {
	return []generate.Unit{
		{WantedBy: "multi-user.target", Name: GlobalUnit, Target: "/" + path.Join(UnitDir, GlobalUnit)},
	}
}

func execLines(cmds []string) string {
	var b strings.Builder
	for _, c := range cmds {
		b.WriteString("ExecStart=" + c + "\n")
	}
	return b.String()
}

func vsctl(tpl string, vars map[string]any) string {
	return Vsctl + " " + backend.Render(tpl, vars)
}

// commands returns the ovs-vsctl invocations for one definition.
func commands(st *state.State, def *netdef.Definition) ([]string, error) {
	var parent *netdef.Definition
	if def.Parent != "" {
		if p, ok := st.Get(def.Parent); ok && p.Resolved == netdef.BackendOpenVSwitch {
			parent = p
		}
	}
	vars := map[string]any{"id": def.ID, "iface": def.InterfaceName()}
	if parent != nil {
		vars["parent"] = parent.ID
	}

	var cmds []string
	table := "Interface"
	switch {
	case def.Kind == netdef.KindBridge && def.Resolved == netdef.BackendOpenVSwitch:
		table = "Bridge"
		cmds = append(cmds, vsctl("--may-exist add-br {{id}}", vars))
		cmds = append(cmds, bridgeSettings(def)...)

	case def.Kind == netdef.KindVLAN && def.Resolved == netdef.BackendOpenVSwitch:
		if def.Link == nil || def.VLANID == nil {
			return nil, fmt.Errorf("%s: OpenVSwitch VLAN needs a link and an id", def.ID)
		}
		table = "Bridge"
		vars["link"], vars["vid"] = *def.Link, strconv.Itoa(*def.VLANID)
		cmds = append(cmds, vsctl("--may-exist add-br {{id}} {{link}} {{vid}}", vars))

	case def.Kind == netdef.KindBond && def.Resolved == netdef.BackendOpenVSwitch:
		if parent == nil {
			return nil, fmt.Errorf("%s: OpenVSwitch bond must be a member of an OpenVSwitch bridge", def.ID)
		}
		if len(def.Interfaces) < 2 {
			return nil, fmt.Errorf("%s: OpenVSwitch bond needs at least two interfaces", def.ID)
		}
		table = "Port"
		vars["members"] = strings.Join(def.Interfaces, " ")
		cmds = append(cmds, vsctl("--may-exist add-bond {{parent}} {{id}} {{members}}", vars))
		if lacp, ok := def.OpenVSwitch.Get("lacp"); ok {
			vars["lacp"] = lacp.String()
			cmds = append(cmds, vsctl("set Port {{id}} lacp={{lacp}}", vars))
		}

	case def.Kind == netdef.KindPort:
		peer, ok := def.OpenVSwitch.Get("peer")
		if !ok || peer.String() == "" {
			return nil, fmt.Errorf("%s: patch port needs a peer", def.ID)
		}
		if parent == nil {
			return nil, fmt.Errorf("%s: patch port must be a member of an OpenVSwitch bridge", def.ID)
		}
		vars["peer"] = peer.String()
		cmds = append(cmds, vsctl("--may-exist add-port {{parent}} {{id}} -- set Interface {{id}} type=patch options:peer={{peer}}", vars))

	case parent != nil && parent.Kind == netdef.KindBridge:
		cmds = append(cmds, vsctl("--may-exist add-port {{parent}} {{iface}}", vars))

	case parent != nil:
		// Bond members are added by the bond itself.
		return nil, nil
	}

	cmds = append(cmds, columns(table, def.ID, "external-ids", def.OpenVSwitch)...)
	cmds = append(cmds, columns(table, def.ID, "other-config", def.OpenVSwitch)...)
	return cmds, nil
}

func bridgeSettings(def *netdef.Definition) []string {
	cfg := def.OpenVSwitch
	vars := map[string]any{"id": def.ID}
	var cmds []string

	if v, ok := cfg.Get("fail-mode"); ok {
		vars["mode"] = v.String()
		cmds = append(cmds, vsctl("set-fail-mode {{id}} {{mode}}", vars))
	}
	if v, ok := cfg.Get("mcast-snooping"); ok {
		vars["v"] = v.String()
		cmds = append(cmds, vsctl("set Bridge {{id}} mcast_snooping_enable={{v}}", vars))
	}
	if v, ok := cfg.Get("rstp"); ok {
		vars["v"] = v.String()
		cmds = append(cmds, vsctl("set Bridge {{id}} rstp_enable={{v}}", vars))
	}
	if v, ok := cfg.Get("protocols"); ok {
		vars["v"] = strings.Join(v.Strings(), ",")
		cmds = append(cmds, vsctl("set Bridge {{id}} protocols={{v}}", vars))
	}
	if v, ok := cfg.Get("controller.addresses"); ok {
		vars["v"] = strings.Join(v.Strings(), " ")
		cmds = append(cmds, vsctl("set-controller {{id}} {{v}}", vars))
	}
	return cmds
}

// columns renders one "set" per key of a map column such as external-ids.
func columns(table, record, column string, cfg netdef.Value) []string {
	v, ok := cfg.Get(column)
	if !ok {
		return nil
	}
	var cmds []string
	for _, k := range v.Keys() {
		cmds = append(cmds, vsctl("set {{table}} {{record}} {{column}}:{{key}}={{value}}", map[string]any{
			"table": table, "record": record, "column": column, "key": k, "value": v.Map[k].String(),
		}))
	}
	return cmds
}
