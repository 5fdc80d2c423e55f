// Package netdef defines the network definition model shared by the parser,
// the state importer, the backend writers and the YAML emitter.
//
// # Definitions
//
// A [Definition] is one logical network entity (ethernet, wifi, modem, bridge,
// bond, vlan, tunnel, vrf, dummy device or virtual-switch port). Scalar
// settings are pointers so that "unset" differs from an explicit false or 0.
// Backend-specific blocks (bond/bridge parameters, openvswitch, wifi access
// points, NetworkManager passthrough) are kept as tagged [Value] trees.
//
// # Merging
//
// A [Table] owns all definitions. Merging a fragment whose id already exists
// follows a fixed policy:
//   - kinds must match unless one side is unset ([KindConflict] otherwise)
//   - scalars from the later fragment overwrite earlier ones
//   - lists are unioned, keeping first-seen order and dropping duplicates
//   - passthrough blocks are deep-merged key by key, later keys winning
//
// # Example
//
//	t := netdef.NewTable()
//	a := netdef.New("eth0", netdef.KindEthernet)
//	a.Addresses = []string{"10.0.0.1/24"}
//	_ = t.Merge(a)
//
//	b := netdef.New("eth0", netdef.KindNone)
//	b.Addresses = []string{"10.0.0.2/24"}
//	b.Backend = netdef.BackendNetworkManager
//	_ = t.Merge(b)
//	// eth0: addresses [10.0.0.1/24 10.0.0.2/24], backend NetworkManager
package netdef
