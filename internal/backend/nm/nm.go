// Package nm renders definitions into NetworkManager keyfiles.
//
// Each definition becomes one connection profile; a wifi definition becomes
// one profile per access point. Connection UUIDs are derived from the
// definition id (and SSID) so regenerating never churns them. Devices that
// other backends manage are listed as unmanaged in an aggregate conf.d file.
package nm

import (
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"grimm.is/netgen/internal/backend"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/state"
)

const (
	ConnectionDir = "run/NetworkManager/system-connections"
	Prefix        = "netgen-"
	Suffix        = ".nmconnection"

	ConfPath = "run/NetworkManager/conf.d/netgen.conf"
)

// namespace seeds the deterministic connection UUIDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://grimm.is/netgen"))

// Writer is the NetworkManager backend.
type Writer struct {
	log *logging.Logger
}

// New creates the NetworkManager writer.
func New(log *logging.Logger) *Writer {
	if log == nil {
		log = logging.Default()
	}
	return &Writer{log: log.WithComponent("nm")}
}

func (w *Writer) Backend() netdef.Backend { return netdef.BackendNetworkManager }

// ConnectionFile returns the keyfile path for a definition, relative to the
// root. ssid is empty for anything but wifi.
func ConnectionFile(id, ssid string) string {
	name := Prefix + id
	if ssid != "" {
		name += "-" + url.PathEscape(ssid)
	}
	return path.Join(ConnectionDir, name+Suffix)
}

// IDFromFilename recovers the definition id from a keyfile path written by
// this backend. ssid must be given for wifi profiles. ok is false when the
// path does not belong to this backend.
func IDFromFilename(filename, ssid string) (string, bool) {
	name := path.Base(filename)
	if !strings.HasPrefix(name, Prefix) {
		return "", false
	}
	suffix := Suffix
	if ssid != "" {
		suffix = "-" + url.PathEscape(ssid) + Suffix
	}
	if !strings.HasSuffix(name, suffix) {
		return "", false
	}
	id := strings.TrimSuffix(strings.TrimPrefix(name, Prefix), suffix)
	if id == "" {
		return "", false
	}
	return id, true
}

// ConnectionUUID is the stable UUID of a profile.
func ConnectionUUID(id, ssid string) uuid.UUID {
	key := id
	if ssid != "" {
		key += "/" + ssid
	}
	return uuid.NewSHA1(namespace, []byte(key))
}

func (w *Writer) Write(st *state.State, def *netdef.Definition, root string) ([]string, error) {
	header := backend.HeaderFor(def.Filename)

	if def.Kind != netdef.KindWifi {
		f, err := keyfile(st, def, "")
		if err != nil {
			return nil, err
		}
		rel := ConnectionFile(def.ID, "")
		if err := generate.WriteFile(root, rel, []byte(header+f.String()), 0o600); err != nil {
			return nil, err
		}
		return []string{rel}, nil
	}

	var files []string
	for _, ssid := range def.AccessPoints.Keys() {
		f, err := keyfile(st, def, ssid)
		if err != nil {
			return files, err
		}
		rel := ConnectionFile(def.ID, ssid)
		if err := generate.WriteFile(root, rel, []byte(header+f.String()), 0o600); err != nil {
			return files, err
		}
		files = append(files, rel)
	}
	if len(files) == 0 {
		w.log.Warn("wifi definition has no access points", "id", def.ID)
	}
	return files, nil
}

// Finish writes the conf.d file telling NetworkManager to leave alone the
// devices other backends render.
func (w *Writer) Finish(st *state.State, root string) ([]string, error) {
	var devices []string
	for _, def := range st.Definitions() {
		if def.Resolved == netdef.BackendNetworkManager || def.Kind == netdef.KindPort {
			continue
		}
		devices = append(devices, unmanagedSpec(def))
	}

	var f backend.INI
	if len(devices) > 0 {
		f.Section("keyfile").Set("unmanaged-devices+", strings.Join(devices, ","))
	}
	if err := generate.WriteFile(root, ConfPath, []byte(backend.HeaderFor("")+f.String()), 0o644); err != nil {
		return nil, err
	}
	w.log.Debug("wrote unmanaged device list", "devices", len(devices))
	return []string{ConfPath}, nil
}

func unmanagedSpec(def *netdef.Definition) string {
	if def.SetName == nil && def.Match.MACAddress != nil {
		return "mac:" + strings.ToLower(*def.Match.MACAddress)
	}
	return "interface-name:" + def.InterfaceName()
}

func (w *Writer) Artifacts(root string) ([]string, error) {
	files, err := generate.ListFiles(root, ConnectionDir, Prefix)
	if err != nil {
		return nil, err
	}
	conf, err := generate.ListFiles(root, path.Dir(ConfPath), path.Base(ConfPath))
	if err != nil {
		return nil, err
	}
	return append(files, conf...), nil
}

// Owner resolves profiles against st since ids and SSIDs may both contain
// dashes. A definition NetworkManager manages wins: first by exact id, then
// as a wifi profile; otherwise the plain id is reported so the file reads
// as stale.
func (w *Writer) Owner(st *state.State, rel string) (string, bool, bool) {
	if rel == ConfPath {
		return "", true, true
	}
	if path.Dir(rel) != ConnectionDir {
		return "", false, false
	}
	id, ok := IDFromFilename(rel, "")
	if def, exists := st.Get(id); ok && exists && def.AppliesTo(netdef.BackendNetworkManager) {
		return id, false, true
	}
	for _, def := range st.ByKind(netdef.KindWifi) {
		if !def.AppliesTo(netdef.BackendNetworkManager) {
			continue
		}
		for _, ssid := range def.AccessPoints.Keys() {
			if wid, wok := IDFromFilename(rel, ssid); wok && wid == def.ID {
				return wid, false, true
			}
		}
	}
	return id, false, ok
}

// Units is empty: NetworkManager enables itself.
func (w *Writer) Units() []generate.Unit {
	return nil
}

var connectionTypes = map[netdef.Kind]string{
	netdef.KindEthernet: "ethernet",
	netdef.KindWifi:     "wifi",
	netdef.KindModem:    "gsm",
	netdef.KindBridge:   "bridge",
	netdef.KindBond:     "bond",
	netdef.KindVLAN:     "vlan",
	netdef.KindTunnel:   "ip-tunnel",
	netdef.KindVRF:      "vrf",
	netdef.KindDummy:    "dummy",
}

// tunnelModes are NetworkManager's numeric ip-tunnel modes.
var tunnelModes = map[string]int{
	"ipip": 1, "gre": 2, "sit": 3, "isatap": 4, "vti": 5, "ip6ip6": 6,
	"ipip6": 7, "ip6gre": 8, "vti6": 9, "gretap": 10, "ip6gretap": 11,
}

func keyfile(st *state.State, def *netdef.Definition, ssid string) (*backend.INI, error) {
	ctype, ok := connectionTypes[def.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: NetworkManager backend does not support %s definitions", def.ID, def.Kind)
	}

	var f backend.INI
	c := f.Section("connection")
	if ssid != "" {
		c.Set("id", "netgen-"+def.ID+"-"+ssid)
	} else {
		c.Set("id", "netgen-"+def.ID)
	}
	c.Set("type", ctype)
	c.Set("uuid", ConnectionUUID(def.ID, ssid).String())
	if !matchedByHardware(def) {
		c.Set("interface-name", def.InterfaceName())
	}
	if def.Parent != "" {
		if parent, ok := st.Get(def.Parent); ok && parent.Resolved == netdef.BackendNetworkManager {
			c.Set("master", parent.ID)
			c.Set("slave-type", parent.Kind.String())
		}
	}

	switch def.Kind {
	case netdef.KindEthernet:
		hardware(f.Section("ethernet"), def)
	case netdef.KindWifi:
		s := f.Section("wifi")
		hardware(s, def)
		if err := accessPoint(&f, s, def, ssid); err != nil {
			return nil, err
		}
	case netdef.KindVLAN:
		s := f.Section("vlan")
		if def.VLANID != nil {
			s.Set("id", strconv.Itoa(*def.VLANID))
		}
		if def.Link != nil {
			s.Set("parent", *def.Link)
		}
	case netdef.KindTunnel:
		s := f.Section("ip-tunnel")
		if def.Mode != nil {
			mode, ok := tunnelModes[strings.ToLower(*def.Mode)]
			if !ok {
				return nil, fmt.Errorf("%s: NetworkManager backend does not support tunnel mode '%s'", def.ID, *def.Mode)
			}
			s.Set("mode", strconv.Itoa(mode))
		}
		if def.Local != nil {
			s.Set("local", *def.Local)
		}
		if def.Remote != nil {
			s.Set("remote", *def.Remote)
		}
	case netdef.KindBridge:
		params(f.Section("bridge"), def.Parameters)
	case netdef.KindBond:
		params(f.Section("bond"), def.Parameters)
	case netdef.KindVRF:
		if table, ok := def.Parameters.Get("table"); ok {
			f.Section("vrf").Set("table", table.String())
		}
	}

	if def.Parent == "" || def.Kind == netdef.KindBridge || def.Kind == netdef.KindBond {
		ipv4(f.Section("ipv4"), def)
		ipv6(f.Section("ipv6"), def)
	}

	passthrough(&f, def.Passthrough)
	return &f, nil
}

// matchedByHardware reports whether a device is selected only by MAC or
// driver, so the profile must not pin an interface name.
func matchedByHardware(def *netdef.Definition) bool {
	return def.Kind.Physical() && def.SetName == nil && def.Match.Name == nil && !def.Match.IsZero()
}

func hardware(s *backend.Section, def *netdef.Definition) {
	if def.Match.MACAddress != nil {
		s.Set("mac-address", strings.ToUpper(*def.Match.MACAddress))
	}
	if def.MACAddress != nil {
		s.Set("cloned-mac-address", strings.ToUpper(*def.MACAddress))
	}
	if def.MTU != nil {
		s.Set("mtu", strconv.Itoa(*def.MTU))
	}
	if def.WakeOnLAN != nil {
		wol := "1" // default
		if *def.WakeOnLAN {
			wol = "64"
		}
		s.Set("wake-on-lan", wol)
	}
}

func accessPoint(f *backend.INI, s *backend.Section, def *netdef.Definition, ssid string) error {
	ap := def.AccessPoints.Map[ssid]
	get := func(key string) string {
		v, _ := ap.Get(key)
		return v.String()
	}

	s.Set("ssid", ssid)
	switch mode := get("mode"); mode {
	case "", "infrastructure":
		s.Set("mode", "infrastructure")
	case "adhoc", "ap":
		s.Set("mode", mode)
	default:
		return fmt.Errorf("%s: unknown wifi mode '%s'", def.ID, mode)
	}
	switch get("band") {
	case "":
	case "5GHz":
		s.Set("band", "a")
	case "2.4GHz":
		s.Set("band", "bg")
	default:
		return fmt.Errorf("%s: unknown wifi band '%s'", def.ID, get("band"))
	}
	if ch := get("channel"); ch != "" {
		s.Set("channel", ch)
	}
	if bssid := get("bssid"); bssid != "" {
		s.Set("bssid", bssid)
	}
	if get("hidden") == "true" {
		s.Set("hidden", "true")
	}
	if pw := get("password"); pw != "" {
		sec := f.Section("wifi-security")
		sec.Set("key-mgmt", "wpa-psk")
		sec.Set("psk", pw)
	}
	return nil
}

// params copies scalar bridge/bond parameters under their own names.
func params(s *backend.Section, v netdef.Value) {
	for _, key := range v.Keys() {
		if p := v.Map[key]; p.Kind == netdef.ValueScalar {
			s.Set(strings.ReplaceAll(key, "-", "_"), p.Scalar)
		}
	}
}

func ipv4(s *backend.Section, def *netdef.Definition) {
	var addrs []string
	for _, a := range def.Addresses {
		if !netdef.IsIPv6(a) {
			addrs = append(addrs, a)
		}
	}
	switch {
	case def.DHCP4 != nil && *def.DHCP4:
		s.Set("method", "auto")
	case len(addrs) > 0:
		s.Set("method", "manual")
	default:
		s.Set("method", "link-local")
	}
	addresses(s, addrs, def.Gateway4)
	dns(s, def, false)
	routes(s, def, false)
}

func ipv6(s *backend.Section, def *netdef.Definition) {
	var addrs []string
	for _, a := range def.Addresses {
		if netdef.IsIPv6(a) {
			addrs = append(addrs, a)
		}
	}
	switch {
	case def.DHCP6 != nil && *def.DHCP6:
		s.Set("method", "auto")
	case len(addrs) > 0:
		s.Set("method", "manual")
	case def.AcceptRA != nil && *def.AcceptRA:
		s.Set("method", "auto")
	default:
		s.Set("method", "ignore")
	}
	if def.AcceptRA != nil && !*def.AcceptRA {
		s.Set("ra-timeout", "0")
	}
	addresses(s, addrs, def.Gateway6)
	dns(s, def, true)
	routes(s, def, true)
}

func addresses(s *backend.Section, addrs []string, gateway *string) {
	for i, a := range addrs {
		s.Set("address"+strconv.Itoa(i+1), a)
	}
	if gateway != nil {
		s.Set("gateway", *gateway)
	}
}

func dns(s *backend.Section, def *netdef.Definition, v6 bool) {
	var servers []string
	for _, ns := range def.Nameservers {
		if netdef.IsIPv6(ns) == v6 {
			servers = append(servers, ns)
		}
	}
	if len(servers) > 0 {
		s.Set("dns", strings.Join(servers, ";")+";")
	}
	if len(def.Search) > 0 && !v6 {
		s.Set("dns-search", strings.Join(def.Search, ";")+";")
	}
}

func routes(s *backend.Section, def *netdef.Definition, v6 bool) {
	n := 0
	for _, r := range def.Routes {
		dest := netdef.RouteDestination(r.To, r.Via)
		if netdef.IsIPv6(dest) != v6 {
			continue
		}
		n++
		key := "route" + strconv.Itoa(n)
		value := dest
		if r.Via != "" {
			value += "," + r.Via
		}
		if r.Metric != nil {
			if r.Via == "" {
				value += "," + netdef.UnspecifiedAddress(v6)
			}
			value += "," + strconv.Itoa(*r.Metric)
		}
		s.Set(key, value)

		var opts []string
		if r.Table != nil {
			opts = append(opts, "table="+strconv.Itoa(*r.Table))
		}
		if r.OnLink != nil && *r.OnLink {
			opts = append(opts, "onlink=true")
		}
		if r.From != "" {
			opts = append(opts, "src="+r.From)
		}
		if len(opts) > 0 {
			s.Set(key+"_options", strings.Join(opts, ","))
		}
	}
}

// passthrough applies raw keyfile settings last so they win. Keys are either
// "group.key" scalars or group maps.
func passthrough(f *backend.INI, v netdef.Value) {
	for _, key := range v.Keys() {
		val := v.Map[key]
		switch val.Kind {
		case netdef.ValueScalar:
			group, name, ok := strings.Cut(key, ".")
			if !ok {
				continue
			}
			f.Section(group).Set(name, val.Scalar)
		case netdef.ValueMap:
			s := f.Section(key)
			for _, name := range val.Keys() {
				if sub := val.Map[name]; sub.Kind == netdef.ValueScalar {
					s.Set(name, sub.Scalar)
				}
			}
		}
	}
}
