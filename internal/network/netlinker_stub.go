//go:build !linux
// +build !linux

package network

import (
	"fmt"

	"github.com/vishvananda/netlink"
)

// DefaultNetlinker is the default RealNetlinker instance (stub).
var DefaultNetlinker Netlinker = &RealNetlinker{}

// RealNetlinker is a stub implementation of Netlinker.
type RealNetlinker struct{}

func (r *RealNetlinker) LinkByName(name string) (netlink.Link, error) {
	return nil, fmt.Errorf("LinkByName not supported on this platform")
}

func (r *RealNetlinker) LinkList() ([]netlink.Link, error) {
	return nil, nil
}

func (r *RealNetlinker) DriverName(name string) (string, error) {
	return "", fmt.Errorf("DriverName not supported on this platform")
}
