// Package networkd renders definitions into systemd-networkd .network,
// .netdev and .link files, plus wpa_supplicant configuration for wifi.
package networkd

import (
	"fmt"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"

	"grimm.is/netgen/internal/backend"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

const (
	NetworkDir = "run/systemd/network"
	Prefix     = "10-netgen-"

	WPADir    = "run/netgen"
	WPAPrefix = "wpa-"
)

var extensions = []string{".network", ".netdev", ".link"}

// Writer is the systemd-networkd backend.
type Writer struct {
	log *logging.Logger
}

// New creates the networkd writer.
func New(log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Default()
	}
	return &Writer{log: log.WithComponent("networkd")}
}

func (w *Writer) Backend() netdef.Backend { return netdef.BackendNetworkd }

// Write renders def. Modems are rejected: networkd has no modem support.
func (w *Writer) Write(st *state.State, def *netdef.Definition, root string) ([]string, error) {
	if def.Kind == netdef.KindModem {
		return nil, fmt.Errorf("%s: networkd backend does not support GSM/CDMA modem configuration", def.ID)
	}

	header := backend.HeaderFor(def.Filename)
	var files []string
	emit := func(rel, body string, perm os.FileMode) error {
		if err := generate.WriteFile(root, rel, []byte(header+body), perm); err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	}

	if f := linkFile(def); f != nil {
		if err := emit(path.Join(NetworkDir, Prefix+def.ID+".link"), f.String(), 0o644); err != nil {
			return files, err
		}
	}
	if def.Kind.Virtual() {
		f, err := netdevFile(def)
		if err != nil {
			return files, err
		}
		if err := emit(path.Join(NetworkDir, Prefix+def.ID+".netdev"), f.String(), 0o644); err != nil {
			return files, err
		}
	}
	if err := emit(path.Join(NetworkDir, Prefix+def.ID+".network"), networkFile(st, def).String(), 0o644); err != nil {
		return files, err
	}
	if def.Kind == netdef.KindWifi {
		conf, err := wpaConfig(def)
		if err != nil {
			return files, err
		}
		if err := emit(path.Join(WPADir, WPAPrefix+def.ID+".conf"), conf, 0o600); err != nil {
			return files, err
		}
	}

	w.log.Debug("rendered", "id", def.ID, "files", len(files))
	return files, nil
}

// Finish has nothing to do: every networkd artifact belongs to one definition.
func (w *Writer) Finish(*state.State, string) ([]string, error) {
	return nil, nil
}

func (w *Writer) Artifacts(root string) ([]string, error) {
	units, err := generate.ListFiles(root, NetworkDir, Prefix)
	if err != nil {
		return nil, err
	}
	wpa, err := generate.ListFiles(root, WPADir, WPAPrefix)
	if err != nil {
		return nil, err
	}
	return append(units, wpa...), nil
}

func (w *Writer) Owner(_ *state.State, rel string) (string, bool, bool) {
	dir, name := path.Split(rel)
	dir = strings.TrimSuffix(dir, "/")
	switch dir {
	case NetworkDir:
		if !strings.HasPrefix(name, Prefix) {
			return "", false, false
		}
		for _, ext := range extensions {
			if strings.HasSuffix(name, ext) {
				return strings.TrimSuffix(strings.TrimPrefix(name, Prefix), ext), false, true
			}
		}
	case WPADir:
		if strings.HasPrefix(name, WPAPrefix) && strings.HasSuffix(name, ".conf") {
			return strings.TrimSuffix(strings.TrimPrefix(name, WPAPrefix), ".conf"), false, true
		}
	}
	return "", false, false
}

// Units enables networkd and its wait-online companion.
func (w *Writer) Units() []generate.Unit {
	return []generate.Unit{
		{WantedBy: "multi-user.target", Name: "systemd-networkd.service", Target: "../systemd-networkd.service"},
		{WantedBy: "network-online.target", Name: "systemd-networkd-wait-online.service", Target: "/lib/systemd/system/systemd-networkd-wait-online.service"},
	}
}

// linkFile renames or tunes a physical device. Nil when nothing is needed.
func linkFile(def *netdef.Definition) *backend.INI {
	if !def.Kind.Physical() || (def.SetName == nil && def.WakeOnLAN == nil) {
		return nil
	}
	var f backend.INI
	m := f.Section("Match")
	if def.Match.IsZero() {
		m.Set("OriginalName", def.ID)
	}
	if def.Match.Name != nil {
		m.Set("OriginalName", *def.Match.Name)
	}
	if def.Match.MACAddress != nil {
		m.Set("MACAddress", *def.Match.MACAddress)
	}
	if def.Match.Driver != nil {
		m.Set("Driver", *def.Match.Driver)
	}

	l := f.Section("Link")
	if def.SetName != nil {
		l.Set("Name", *def.SetName)
	}
	if def.WakeOnLAN != nil {
		l.Set("WakeOnLan", map[bool]string{true: "magic", false: "off"}[*def.WakeOnLAN])
	}
	if def.MTU != nil {
		l.Set("MTUBytes", strconv.Itoa(*def.MTU))
	}
	return &f
}

func netdevFile(def *netdef.Definition) (*backend.INI, error) {
	var f backend.INI
	nd := f.Section("NetDev")
	nd.Set("Name", def.ID)

	kind := def.Kind.String()
	if def.Kind == netdef.KindTunnel && def.Mode != nil {
		kind = tunnelKind(*def.Mode)
	}
	nd.Set("Kind", kind)
	if def.MTU != nil {
		nd.Set("MTUBytes", strconv.Itoa(*def.MTU))
	}
	if def.MACAddress != nil {
		nd.Set("MACAddress", *def.MACAddress)
	}

	switch def.Kind {
	case netdef.KindVLAN:
		if def.VLANID != nil {
			f.Section("VLAN").Set("Id", strconv.Itoa(*def.VLANID))
		}
	case netdef.KindTunnel:
		s := f.Section("Tunnel")
		if def.Local != nil {
			s.Set("Local", *def.Local)
		}
		if def.Remote != nil {
			s.Set("Remote", *def.Remote)
		}
		if kind == "ip6tnl" {
			s.Set("Mode", strings.ToLower(*def.Mode))
		}
	case netdef.KindBridge:
		mapParams(f.Section("Bridge"), def.Parameters, bridgeParams)
	case netdef.KindBond:
		mapParams(f.Section("Bond"), def.Parameters, bondParams)
	case netdef.KindVRF:
		table, ok := def.Parameters.Get("table")
		if !ok || table.String() == "" {
			return nil, fmt.Errorf("%s: vrf requires a routing table", def.ID)
		}
		f.Section("VRF").Set("Table", table.String())
	}
	return &f, nil
}

// tunnelKind maps a tunnel mode to a NetDev kind; most share the name.
func tunnelKind(mode string) string {
	m := strings.ToLower(mode)
	if m == "ipip6" || m == "ip6ip6" {
		return "ip6tnl"
	}
	return m
}

var bridgeParams = map[string]string{
	"stp":           "STP",
	"forward-delay": "ForwardDelaySec",
	"hello-time":    "HelloTimeSec",
	"max-age":       "MaxAgeSec",
	"ageing-time":   "AgeingTimeSec",
	"priority":      "Priority",
}

var bondParams = map[string]string{
	"mode":                 "Mode",
	"lacp-rate":            "LACPTransmitRate",
	"mii-monitor-interval": "MIIMonitorSec",
	"transmit-hash-policy": "TransmitHashPolicy",
	"min-links":            "MinLinks",
	"primary-reselect":     "PrimaryReselectPolicy",
}

// mapParams copies the known scalar parameters into s in key order.
func mapParams(s *backend.Section, params netdef.Value, names map[string]string) {
	for _, key := range params.Keys() {
		name, ok := names[key]
		if !ok {
			continue
		}
		if v := params.Map[key]; v.Kind == netdef.ValueScalar {
			s.Set(name, v.Scalar)
		}
	}
}

func networkFile(st *state.State, def *netdef.Definition) *backend.INI {
	var f backend.INI

	m := f.Section("Match")
	if def.Kind.Physical() && def.SetName == nil && !def.Match.IsZero() {
		if def.Match.Name != nil {
			m.Set("Name", *def.Match.Name)
		}
		if def.Match.MACAddress != nil {
			m.Set("MACAddress", *def.Match.MACAddress)
		}
		if def.Match.Driver != nil {
			m.Set("Driver", *def.Match.Driver)
		}
	} else {
		m.Set("Name", def.InterfaceName())
	}

	l := f.Section("Link")
	if def.Optional != nil && *def.Optional {
		l.Set("RequiredForOnline", "no")
	}
	if def.MTU != nil && !def.Kind.Virtual() {
		l.Set("MTUBytes", strconv.Itoa(*def.MTU))
	}
	if def.MACAddress != nil && !def.Kind.Virtual() {
		l.Set("MACAddress", *def.MACAddress)
	}

	n := f.Section("Network")
	if dhcp := dhcpMode(def); dhcp != "" {
		n.Set("DHCP", dhcp)
	}
	n.Set("LinkLocalAddressing", "ipv6")
	for _, a := range def.Addresses {
		n.Append("Address", a)
	}
	if def.Gateway4 != nil {
		n.Append("Gateway", *def.Gateway4)
	}
	if def.Gateway6 != nil {
		n.Append("Gateway", *def.Gateway6)
	}
	for _, ns := range def.Nameservers {
		n.Append("DNS", ns)
	}
	if len(def.Search) > 0 {
		n.Set("Domains", strings.Join(def.Search, " "))
	}
	if def.AcceptRA != nil {
		n.Set("IPv6AcceptRA", yesNo(*def.AcceptRA))
	}
	if def.Parent != "" {
		if parent, ok := st.Get(def.Parent); ok && parent.Resolved != netdef.BackendOpenVSwitch {
			switch parent.Kind {
			case netdef.KindBridge:
				n.Set("Bridge", parent.ID)
			case netdef.KindBond:
				n.Set("Bond", parent.ID)
			case netdef.KindVRF:
				n.Set("VRF", parent.ID)
			}
		}
	}
	for _, vlan := range st.ByKind(netdef.KindVLAN) {
		if vlan.Link != nil && *vlan.Link == def.ID {
			n.Append("VLAN", vlan.ID)
		}
	}

	if def.Critical != nil && *def.Critical {
		f.Section("DHCP").Set("CriticalConnection", "true")
	}

	for _, r := range def.Routes {
		s := f.Add("Route")
		s.Set("Destination", netdef.RouteDestination(r.To, r.Via))
		if r.Via != "" {
			s.Set("Gateway", r.Via)
		}
		if r.From != "" {
			s.Set("PreferredSource", r.From)
		}
		if r.Metric != nil {
			s.Set("Metric", strconv.Itoa(*r.Metric))
		}
		if r.Table != nil {
			s.Set("Table", strconv.Itoa(*r.Table))
		}
		if r.OnLink != nil && *r.OnLink {
			s.Set("GatewayOnLink", "true")
		}
	}
	return &f
}

func dhcpMode(def *netdef.Definition) string {
	v4 := def.DHCP4 != nil && *def.DHCP4
	v6 := def.DHCP6 != nil && *def.DHCP6
	switch {
	case v4 && v6:
		return "yes"
	case v4:
		return "ipv4"
	case v6:
		return "ipv6"
	}
	return ""
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// wpaConfig renders one network block per access point, sorted by SSID.
func wpaConfig(def *netdef.Definition) (string, error) {
	var b strings.Builder
	b.WriteString("ctrl_interface=/run/wpa_supplicant\n")

	ssids := def.AccessPoints.Keys()
	sort.Strings(ssids)
	for _, ssid := range ssids {
		ap := def.AccessPoints.Map[ssid]
		get := func(key string) string {
			v, _ := ap.Get(key)
			return v.String()
		}

		b.WriteString("\nnetwork={\n")
		fmt.Fprintf(&b, "  ssid=%q\n", ssid)
		switch get("mode") {
		case "", "infrastructure":
		case "adhoc":
			b.WriteString("  mode=1\n")
		case "ap":
			return "", fmt.Errorf("%s: networkd does not support wifi in access point mode", def.ID)
		default:
			return "", fmt.Errorf("%s: unknown wifi mode '%s'", def.ID, get("mode"))
		}
		if bssid := get("bssid"); bssid != "" {
			fmt.Fprintf(&b, "  bssid=%s\n", bssid)
		}
		if get("hidden") == "true" {
			b.WriteString("  scan_ssid=1\n")
		}
		if ch := get("channel"); ch != "" {
			freq, err := frequency(get("band"), ch)
			if err != nil {
				return "", fmt.Errorf("%s: access point '%s': %w", def.ID, ssid, err)
			}
			fmt.Fprintf(&b, "  frequency=%d\n", freq)
		}
		if pw := get("password"); pw != "" {
			b.WriteString("  key_mgmt=WPA-PSK\n")
			fmt.Fprintf(&b, "  psk=%q\n", pw)
		} else {
			b.WriteString("  key_mgmt=NONE\n")
		}
		b.WriteString("}\n")
	}
	return b.String(), nil
}

func frequency(band, channel string) (int, error) {
	ch, err := strconv.Atoi(channel)
	if err != nil {
		return 0, fmt.Errorf("invalid channel '%s'", channel)
	}
	if band == "5GHz" {
		return netdef.WifiFrequency5(ch)
	}
	return netdef.WifiFrequency24(ch)
}
