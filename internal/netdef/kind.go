package netdef

import (
	"fmt"
	"strings"
)

// Kind is the entity type of a network definition.
type Kind int

const (
	KindNone Kind = iota
	KindEthernet
	KindWifi
	KindModem
	KindBridge
	KindBond
	KindVLAN
	KindTunnel
	KindVRF
	KindDummy
	KindPort
)

// sections maps each kind to the document section it is declared in.
// The order here is also the emit order.
var sections = []struct {
	kind    Kind
	name    string
	section string
}{
	{KindEthernet, "ethernet", "ethernets"},
	{KindWifi, "wifi", "wifis"},
	{KindModem, "modem", "modems"},
	{KindBridge, "bridge", "bridges"},
	{KindBond, "bond", "bonds"},
	{KindVLAN, "vlan", "vlans"},
	{KindTunnel, "tunnel", "tunnels"},
	{KindVRF, "vrf", "vrfs"},
	{KindDummy, "dummy", "dummy-devices"},
	{KindPort, "port", "ports"},
}

func (k Kind) String() string {
	for _, s := range sections {
		if s.kind == k {
			return s.name
		}
	}
	return "none"
}

// Section returns the document section name for the kind ("ethernets", ...).
func (k Kind) Section() string {
	for _, s := range sections {
		if s.kind == k {
			return s.section
		}
	}
	return ""
}

// Physical reports whether the kind describes hardware that exists
// independently of the generated configuration.
func (k Kind) Physical() bool {
	return k == KindEthernet || k == KindWifi || k == KindModem
}

// Virtual reports whether the backend has to create the device.
func (k Kind) Virtual() bool {
	switch k {
	case KindBridge, KindBond, KindVLAN, KindTunnel, KindVRF, KindDummy:
		return true
	}
	return false
}

// CompatibleWith reports whether two fragments of these kinds may be merged.
func (k Kind) CompatibleWith(other Kind) bool {
	return k == KindNone || other == KindNone || k == other
}

// KindFromSection resolves a document section name.
func KindFromSection(section string) (Kind, bool) {
	for _, s := range sections {
		if s.section == section {
			return s.kind, true
		}
	}
	return KindNone, false
}

// ParseKind resolves a kind name ("ethernet", "bridge", ...).
func ParseKind(name string) (Kind, error) {
	for _, s := range sections {
		if s.name == name {
			return s.kind, nil
		}
	}
	return KindNone, fmt.Errorf("unknown definition kind %q", name)
}

// Kinds returns all kinds in section order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.kind)
	}
	return out
}

// Backend is a network management subsystem that consumes generated configuration.
type Backend int

const (
	BackendNone Backend = iota
	BackendNetworkd
	BackendNetworkManager
	BackendOpenVSwitch
)

// DefaultBackend is used when neither a definition nor the globals pick one.
const DefaultBackend = BackendNetworkd

func (b Backend) String() string {
	switch b {
	case BackendNetworkd:
		return "networkd"
	case BackendNetworkManager:
		return "NetworkManager"
	case BackendOpenVSwitch:
		return "OpenVSwitch"
	}
	return "none"
}

// Backends returns the concrete backends in generation order.
func Backends() []Backend {
	return []Backend{BackendNetworkd, BackendNetworkManager, BackendOpenVSwitch}
}

// ParseBackend accepts the renderer names used in documents. Matching is
// case-insensitive; "nm" and "ovs" are accepted as short forms.
func ParseBackend(name string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "networkd":
		return BackendNetworkd, nil
	case "networkmanager", "nm":
		return BackendNetworkManager, nil
	case "openvswitch", "ovs":
		return BackendOpenVSwitch, nil
	}
	return BackendNone, fmt.Errorf("unknown renderer %q", name)
}
