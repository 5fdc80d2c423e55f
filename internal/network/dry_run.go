package network

import (
	"fmt"
	"net"
	"sync"

	"github.com/vishvananda/netlink"
)

// DryRunNetlinker serves a fixed device list instead of querying the
// kernel. It is used when generating for an alternate root, where the
// running system's devices are irrelevant.
type DryRunNetlinker struct {
	mu      sync.Mutex
	devices []Device
	Ops     []string
}

// NewDryRunNetlinker creates a netlinker reporting the given devices.
func NewDryRunNetlinker(devices ...Device) *DryRunNetlinker {
	return &DryRunNetlinker{devices: devices}
}

func (n *DryRunNetlinker) log(op string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Ops = append(n.Ops, fmt.Sprintf("ip %s", op))
}

func (n *DryRunNetlinker) link(d Device) netlink.Link {
	hw, _ := net.ParseMAC(d.MAC)
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: d.Name, HardwareAddr: hw}}
}

func (n *DryRunNetlinker) LinkByName(name string) (netlink.Link, error) {
	n.log(fmt.Sprintf("link show %s", name))
	for _, d := range n.devices {
		if d.Name == name {
			return n.link(d), nil
		}
	}
	return nil, fmt.Errorf("link %s not found", name)
}

func (n *DryRunNetlinker) LinkList() ([]netlink.Link, error) {
	n.log("link show")
	links := make([]netlink.Link, 0, len(n.devices))
	for _, d := range n.devices {
		links = append(links, n.link(d))
	}
	return links, nil
}

func (n *DryRunNetlinker) DriverName(name string) (string, error) {
	for _, d := range n.devices {
		if d.Name == name && d.Driver != "" {
			return d.Driver, nil
		}
	}
	return "", fmt.Errorf("no driver for %s", name)
}
