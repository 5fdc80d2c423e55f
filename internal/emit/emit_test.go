package emit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/state"
)

func quietLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Output = &strings.Builder{}
	return logging.New(cfg)
}

// load parses one document and returns both the accumulated table and the
// imported state.
func load(t *testing.T, path string) (*netdef.Table, *state.State) {
	t.Helper()
	p := parser.New(parser.Options{Logger: quietLogger()})
	require.NoError(t, p.LoadFile(path))
	table := p.Table().Clone()
	st, err := state.Import(p, state.WithLogger(quietLogger()))
	require.NoError(t, err)
	return table, st
}

const fullDoc = `network:
  version: 2
  renderer: NetworkManager
  openvswitch:
    other-config:
      disable-in-band: "true"
  ethernets:
    eth0:
      match:
        macaddress: "00:11:22:33:44:55"
      set-name: lan0
      dhcp4: false
      mtu: 9000
      addresses: [10.0.0.2/24, "2001:db8::2/64"]
      gateway4: 10.0.0.1
      nameservers:
        addresses: [10.0.0.53]
        search: [corp.example]
      routes:
        - to: default
          via: 10.0.0.1
          metric: 10
          on-link: true
      networkmanager:
        passthrough:
          connection.autoconnect: "no"
    eth1:
      renderer: networkd
      optional: true
  wifis:
    wlan0:
      access-points:
        home:
          password: hunter2
          channel: "36"
          band: 5GHz
        open: {}
  bridges:
    br0:
      interfaces: [eth1]
      parameters:
        stp: "false"
        priority: "32768"
  vlans:
    vlan20:
      id: 20
      link: eth0
  tunnels:
    gre1:
      mode: gre
      local: 10.0.0.2
      remote: 192.0.2.7
  vrfs:
    blue:
      table: 7
`

func TestRoundTrip_FullState(t *testing.T) {
	src := filepath.Join(t.TempDir(), "01.yaml")
	require.NoError(t, os.WriteFile(src, []byte(fullDoc), 0o600))
	orig, st := load(t, src)

	root := t.TempDir()
	rel, err := Write(st, nil, root, "")
	require.NoError(t, err)
	assert.Equal(t, "etc/netgen/netgen.yaml", rel)

	again, st2 := load(t, filepath.Join(root, rel))
	assert.True(t, orig.Equal(again), "emitted document must reload to the same table")
	assert.Equal(t, st.Globals().Backend, st2.Globals().Backend)
	assert.True(t, st.Globals().OpenVSwitch.Equal(st2.Globals().OpenVSwitch))
}

func TestRoundTrip_InterleavedKinds(t *testing.T) {
	src := filepath.Join(t.TempDir(), "01.yaml")
	require.NoError(t, os.WriteFile(src, []byte(`network:
  version: 2
  bridges:
    br0:
      interfaces: [eth0]
  vlans:
    vlan7:
      id: 7
      link: eth1
  ethernets:
    eth0: {}
    eth1:
      mtu: 1500
`), 0o600))
	orig, st := load(t, src)
	require.Equal(t, []string{"br0", "vlan7", "eth0", "eth1"}, orig.IDs())

	root := t.TempDir()
	rel, err := Write(st, nil, root, "")
	require.NoError(t, err)
	again, _ := load(t, filepath.Join(root, rel))

	assert.Equal(t, []string{"eth0", "eth1", "br0", "vlan7"}, again.IDs(), "reloaded in section order")
	assert.True(t, orig.Equal(again))
}

func TestMarshal_Deterministic(t *testing.T) {
	src := filepath.Join(t.TempDir(), "01.yaml")
	require.NoError(t, os.WriteFile(src, []byte(fullDoc), 0o600))
	_, st := load(t, src)

	a, err := Marshal(st, nil)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		b, err := Marshal(st, nil)
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	}

	out := string(a)
	assert.True(t, strings.HasPrefix(out, "network:\n  version: 2\n  renderer: NetworkManager\n"), out)
	assert.Less(t, strings.Index(out, "ethernets:"), strings.Index(out, "wifis:"))
	assert.Less(t, strings.Index(out, "bridges:"), strings.Index(out, "vlans:"))
}

func TestWrite_SingleDefinition(t *testing.T) {
	eth := netdef.New("eth0", netdef.KindEthernet)
	eth.Addresses = []string{"192.168.0.5/24"}
	dhcp := true
	eth.DHCP6 = &dhcp

	root := t.TempDir()
	rel, err := Write(state.Empty(), eth, root, "ignored")
	require.NoError(t, err)
	assert.Equal(t, "etc/netgen/10-netgen-eth0.yaml", rel)

	info, err := os.Stat(filepath.Join(root, rel))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	p := parser.New(parser.Options{Logger: quietLogger()})
	require.NoError(t, p.LoadFile(filepath.Join(root, rel)))
	got, ok := p.Table().Get("eth0")
	require.True(t, ok)
	assert.True(t, got.Equivalent(eth))
}

func TestPath(t *testing.T) {
	tests := []struct {
		hint    string
		want    string
		wantErr bool
	}{
		{"", "etc/netgen/netgen.yaml", false},
		{"90-all", "etc/netgen/90-all.yaml", false},
		{"90-all.yaml", "etc/netgen/90-all.yaml", false},
		{"../escape", "", true},
		{"a/b", "", true},
	}
	for _, tt := range tests {
		got, err := Path(nil, tt.hint)
		if tt.wantErr {
			assert.Error(t, err, tt.hint)
			continue
		}
		require.NoError(t, err, tt.hint)
		assert.Equal(t, tt.want, got)
	}
}

func TestMarshal_EmptyState(t *testing.T) {
	out, err := Marshal(state.Empty(), nil)
	require.NoError(t, err)
	assert.Equal(t, "network:\n  version: 2\n", string(out))
}
