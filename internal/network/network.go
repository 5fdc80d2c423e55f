package network

import (
	"net"
	"path/filepath"
	"strings"
	"sync"

	"github.com/vishvananda/netlink"

	"grimm.is/netgen/internal/netdef"
)

// Netlinker is an interface that abstracts netlink interactions.
// This allows for mocking netlink calls during unit testing.
type Netlinker interface {
	LinkByName(name string) (netlink.Link, error)
	LinkList() ([]netlink.Link, error)
	DriverName(name string) (string, error)
}

// Device is a network device present on the system.
type Device struct {
	Name   string
	MAC    string
	Driver string
}

// Resolver answers device questions from a device list fetched once.
type Resolver struct {
	nl Netlinker

	mu      sync.Mutex
	devices []Device
	err     error
	loaded  bool
}

// NewResolver creates a resolver backed by nl.
func NewResolver(nl Netlinker) *Resolver {
	return &Resolver{nl: nl}
}

// Devices returns the system devices, fetching them on first use.
func (r *Resolver) Devices() ([]Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.devices, r.err
	}
	r.loaded = true

	links, err := r.nl.LinkList()
	if err != nil {
		r.err = err
		return nil, err
	}
	for _, l := range links {
		attrs := l.Attrs()
		if attrs == nil {
			continue
		}
		dev := Device{Name: attrs.Name, MAC: formatMAC(attrs.HardwareAddr)}
		if drv, err := r.nl.DriverName(attrs.Name); err == nil {
			dev.Driver = drv
		}
		r.devices = append(r.devices, dev)
	}
	return r.devices, nil
}

// LinkExists reports whether a device with this name exists. Lookup
// failures count as absent.
func (r *Resolver) LinkExists(name string) bool {
	devices, err := r.Devices()
	if err == nil {
		for _, d := range devices {
			if d.Name == name {
				return true
			}
		}
		return false
	}
	_, err = r.nl.LinkByName(name)
	return err == nil
}

// Match returns the devices selected by a match rule. Name patterns use
// shell globbing; every given property must match.
func (r *Resolver) Match(m netdef.Match) ([]Device, error) {
	devices, err := r.Devices()
	if err != nil {
		return nil, err
	}
	if m.IsZero() {
		return nil, nil
	}
	var out []Device
	for _, d := range devices {
		if m.Name != nil {
			if ok, _ := filepath.Match(*m.Name, d.Name); !ok {
				continue
			}
		}
		if m.MACAddress != nil && !strings.EqualFold(*m.MACAddress, d.MAC) {
			continue
		}
		if m.Driver != nil {
			if ok, _ := filepath.Match(*m.Driver, d.Driver); !ok {
				continue
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// MatchesAny reports whether at least one device satisfies m. An empty
// rule or a device list that cannot be read matches nothing.
func (r *Resolver) MatchesAny(m netdef.Match) bool {
	devices, err := r.Match(m)
	return err == nil && len(devices) > 0
}

func formatMAC(hw net.HardwareAddr) string {
	if len(hw) == 0 {
		return ""
	}
	return hw.String()
}
