package network

import (
	"errors"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"

	"grimm.is/netgen/internal/netdef"
)

func device(name, mac string) netlink.Link {
	hw, _ := net.ParseMAC(mac)
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name, HardwareAddr: hw}}
}

func TestResolver_LinkExistsCachesList(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkList").Return([]netlink.Link{
		device("lo", ""),
		device("enp3s0", "00:11:22:33:44:55"),
	}, nil).Once()
	nl.On("DriverName", "lo").Return("", errors.New("no driver"))
	nl.On("DriverName", "enp3s0").Return("e1000e", nil)

	r := NewResolver(nl)
	assert.True(t, r.LinkExists("enp3s0"))
	assert.False(t, r.LinkExists("eth9"))
	assert.True(t, r.LinkExists("lo"))
	nl.AssertExpectations(t)
	nl.AssertNumberOfCalls(t, "LinkList", 1)
}

func TestResolver_FallsBackToLinkByName(t *testing.T) {
	nl := new(MockNetlinker)
	nl.On("LinkList").Return(nil, errors.New("permission denied"))
	nl.On("LinkByName", "eth0").Return(device("eth0", ""), nil)
	nl.On("LinkByName", "eth1").Return(nil, errors.New("not found"))

	r := NewResolver(nl)
	assert.True(t, r.LinkExists("eth0"))
	assert.False(t, r.LinkExists("eth1"))

	_, err := r.Match(netdef.Match{Name: strPtr("eth*")})
	assert.Error(t, err)
}

func strPtr(s string) *string { return &s }

func TestResolver_Match(t *testing.T) {
	nl := NewDryRunNetlinker(
		Device{Name: "enp3s0", MAC: "00:11:22:33:44:55", Driver: "e1000e"},
		Device{Name: "enp4s0", MAC: "00:11:22:33:44:66", Driver: "ixgbe"},
		Device{Name: "wlp2s0", MAC: "aa:bb:cc:dd:ee:ff", Driver: "iwlwifi"},
	)
	r := NewResolver(nl)

	tests := []struct {
		name  string
		match netdef.Match
		want  []string
	}{
		{"empty", netdef.Match{}, nil},
		{"glob", netdef.Match{Name: strPtr("enp*")}, []string{"enp3s0", "enp4s0"}},
		{"mac case-insensitive", netdef.Match{MACAddress: strPtr("AA:BB:CC:DD:EE:FF")}, []string{"wlp2s0"}},
		{"driver", netdef.Match{Driver: strPtr("ixgbe")}, []string{"enp4s0"}},
		{"all must match", netdef.Match{Name: strPtr("enp*"), Driver: strPtr("iwlwifi")}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Match(tt.match)
			require.NoError(t, err)
			var names []string
			for _, d := range got {
				names = append(names, d.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestResolver_MatchesAny(t *testing.T) {
	r := NewResolver(NewDryRunNetlinker(
		Device{Name: "enp3s0", MAC: "00:11:22:33:44:55", Driver: "e1000e"},
	))
	assert.True(t, r.MatchesAny(netdef.Match{Driver: strPtr("e1000*")}))
	assert.False(t, r.MatchesAny(netdef.Match{Driver: strPtr("ixgbe")}))
	assert.False(t, r.MatchesAny(netdef.Match{}), "an empty rule selects nothing")

	nl := new(MockNetlinker)
	nl.On("LinkList").Return(nil, errors.New("permission denied"))
	assert.False(t, NewResolver(nl).MatchesAny(netdef.Match{Name: strPtr("enp*")}))
}

func TestDryRunNetlinker(t *testing.T) {
	nl := NewDryRunNetlinker(Device{Name: "eth0"})
	l, err := nl.LinkByName("eth0")
	require.NoError(t, err)
	assert.Equal(t, "eth0", l.Attrs().Name)
	_, err = nl.LinkByName("eth1")
	assert.Error(t, err)
	assert.Equal(t, []string{"ip link show eth0", "ip link show eth1"}, nl.Ops)
}

var _ Netlinker = (*MockNetlinker)(nil)
