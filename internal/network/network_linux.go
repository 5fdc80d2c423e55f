//go:build linux
// +build linux

package network

import (
	"fmt"

	"github.com/safchain/ethtool"
	"github.com/vishvananda/netlink"
)

// DefaultNetlinker is the default RealNetlinker instance.
var DefaultNetlinker Netlinker = &RealNetlinker{}

// RealNetlinker is a concrete implementation of Netlinker that uses the actual netlink package.
type RealNetlinker struct{}

// LinkByName retrieves a link by name.
func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}

// LinkList retrieves all links.
func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return netlink.LinkList()
}

// DriverName returns the kernel driver bound to a device.
func (r *RealNetlinker) DriverName(name string) (string, error) {
	h, err := ethtool.NewEthtool()
	if err != nil {
		return "", fmt.Errorf("failed to open ethtool handle: %w", err)
	}
	defer h.Close()
	return h.DriverName(name)
}
