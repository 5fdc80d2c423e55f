// Package network looks up devices on the running system via netlink.
//
// # Overview
//
// Generation never touches the live network stack. The only question it asks
// the system is whether a name a definition refers to (a VLAN link, a bridge
// member) is a device that exists, and which devices a match rule selects.
//
// # Key Components
//
//   - [Netlinker]: the netlink calls used, mockable in tests
//   - [Resolver]: cached device list answering LinkExists and Match
//   - [DryRunNetlinker]: a fixed device list for alternate roots and tests
//
// # Dependencies
//
// Uses github.com/vishvananda/netlink for link enumeration and
// github.com/safchain/ethtool for driver names (Linux only).
//
// # Example
//
//	r := network.NewResolver(network.DefaultNetlinker)
//	st, err := state.Import(p, state.WithResolver(r))
package network
