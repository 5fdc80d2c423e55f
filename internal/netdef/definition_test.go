package netdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestMerge_AddressUnionAndBackendOverride(t *testing.T) {
	table := NewTable()

	a := New("eth0", KindEthernet)
	a.Addresses = []string{"10.0.0.1"}
	require.NoError(t, table.Merge(a))

	b := New("eth0", KindNone)
	b.Addresses = []string{"10.0.0.2"}
	b.Backend = BackendNetworkManager
	require.NoError(t, table.Merge(b))

	def, ok := table.Get("eth0")
	require.True(t, ok)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, def.Addresses)
	assert.Equal(t, BackendNetworkManager, def.Backend)
	assert.Equal(t, KindEthernet, def.Kind)
	assert.Equal(t, 1, table.Len())
}

func TestMerge_KindConflict(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Merge(New("br0", KindBridge)))

	err := table.Merge(New("br0", KindBond))
	var conflict *KindConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "br0", conflict.ID)
	assert.Equal(t, KindBridge, conflict.Existing)
	assert.Equal(t, KindBond, conflict.Incoming)
	assert.Error(t, table.Check(New("br0", KindBond)))
	assert.NoError(t, table.Check(New("br0", KindNone)))
}

func TestMerge_ExplicitFalseOverrides(t *testing.T) {
	d := New("eth0", KindEthernet)
	d.DHCP4 = ptr(true)
	d.MTU = ptr(9000)

	later := New("eth0", KindEthernet)
	later.DHCP4 = ptr(false)
	require.NoError(t, d.Merge(later))

	require.NotNil(t, d.DHCP4)
	assert.False(t, *d.DHCP4)
	require.NotNil(t, d.MTU)
	assert.Equal(t, 9000, *d.MTU, "unset scalar must not clear an earlier value")
}

func TestMerge_DoesNotAliasFragment(t *testing.T) {
	d := New("eth0", KindEthernet)
	later := New("eth0", KindEthernet)
	later.Match.Name = ptr("en*")
	require.NoError(t, d.Merge(later))

	*later.Match.Name = "changed"
	assert.Equal(t, "en*", *d.Match.Name)
}

func TestMerge_RoutesUnion(t *testing.T) {
	d := New("eth0", KindEthernet)
	d.Routes = []Route{{To: "default", Via: "10.0.0.254"}}

	later := New("eth0", KindEthernet)
	later.Routes = []Route{
		{To: "default", Via: "10.0.0.254"},
		{To: "192.168.0.0/16", Via: "10.0.0.1", Metric: ptr(100)},
	}
	require.NoError(t, d.Merge(later))
	assert.Len(t, d.Routes, 2)
	assert.Equal(t, "192.168.0.0/16", d.Routes[1].To)
}

func TestMerge_PassthroughDeepMerge(t *testing.T) {
	d := New("br0", KindBridge)
	d.Parameters = MapValue(map[string]Value{
		"stp":           ScalarValue("true"),
		"forward-delay": ScalarValue("4"),
		"path-cost":     MapValue(map[string]Value{"eth0": ScalarValue("50")}),
	})

	later := New("br0", KindBridge)
	later.Parameters = MapValue(map[string]Value{
		"stp":       ScalarValue("false"),
		"path-cost": MapValue(map[string]Value{"eth1": ScalarValue("70")}),
	})
	require.NoError(t, d.Merge(later))

	stp, ok := d.Parameters.Get("stp")
	require.True(t, ok)
	assert.Equal(t, "false", stp.String())
	fd, _ := d.Parameters.Get("forward-delay")
	assert.Equal(t, "4", fd.String())
	assert.Equal(t, []string{"eth0", "eth1"}, mustGet(t, d.Parameters, "path-cost").Keys())
}

func mustGet(t *testing.T, v Value, path string) Value {
	t.Helper()
	out, ok := v.Get(path)
	require.True(t, ok, "missing %s", path)
	return out
}

func TestTable_OrderAndClone(t *testing.T) {
	table := NewTable()
	for _, id := range []string{"eth1", "eth0", "br0"} {
		require.NoError(t, table.Merge(New(id, KindEthernet)))
	}
	require.NoError(t, table.Merge(New("eth1", KindEthernet)))
	assert.Equal(t, []string{"eth1", "eth0", "br0"}, table.IDs())

	clone := table.Clone()
	assert.True(t, table.Equal(clone))
	d, _ := clone.Get("eth0")
	d.Addresses = append(d.Addresses, "10.1.1.1/24")
	assert.False(t, table.Equal(clone))
}

func TestTable_EqualIgnoresOrder(t *testing.T) {
	a, b := NewTable(), NewTable()
	for _, id := range []string{"br0", "eth0"} {
		require.NoError(t, a.Merge(New(id, KindEthernet)))
	}
	for _, id := range []string{"eth0", "br0"} {
		require.NoError(t, b.Merge(New(id, KindEthernet)))
	}
	assert.True(t, a.Equal(b))

	require.NoError(t, b.Merge(New("eth1", KindEthernet)))
	assert.False(t, a.Equal(b))
	require.NoError(t, a.Merge(New("eth2", KindEthernet)))
	assert.False(t, a.Equal(b), "same size, different ids")
}

func TestTable_ByKind(t *testing.T) {
	table := NewTable()
	require.NoError(t, table.Merge(New("eth0", KindEthernet)))
	require.NoError(t, table.Merge(New("br0", KindBridge)))
	require.NoError(t, table.Merge(New("eth1", KindEthernet)))

	var ids []string
	for _, d := range table.ByKind(KindEthernet) {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"eth0", "eth1"}, ids)
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in   string
		want Backend
		err  bool
	}{
		{"networkd", BackendNetworkd, false},
		{"NetworkManager", BackendNetworkManager, false},
		{"ovs", BackendOpenVSwitch, false},
		{"sysconfig", BackendNone, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWifiFrequencies(t *testing.T) {
	f, err := WifiFrequency24(1)
	require.NoError(t, err)
	assert.Equal(t, 2412, f)
	f, _ = WifiFrequency24(14)
	assert.Equal(t, 2484, f)
	_, err = WifiFrequency24(15)
	assert.Error(t, err)

	f, err = WifiFrequency5(36)
	require.NoError(t, err)
	assert.Equal(t, 5180, f)
	_, err = WifiFrequency5(37)
	assert.Error(t, err)
}

func TestRouteDestination(t *testing.T) {
	assert.Equal(t, "0.0.0.0/0", RouteDestination("default", "10.0.0.1"))
	assert.Equal(t, "::/0", RouteDestination("default", "fe80::1"))
	assert.Equal(t, "10.0.0.0/8", RouteDestination("10.0.0.0/8", ""))
}
