package netdef

import (
	"fmt"
	"net/netip"
	"strings"
)

// GlobalNetwork returns the default-route destination for an address family.
func GlobalNetwork(ipv6 bool) string {
	if ipv6 {
		return "::/0"
	}
	return "0.0.0.0/0"
}

// UnspecifiedAddress returns the wildcard address for an address family.
func UnspecifiedAddress(ipv6 bool) string {
	if ipv6 {
		return "::"
	}
	return "0.0.0.0"
}

// RouteDestination expands "default" for the family of via (IPv4 when via is
// empty or unparsable).
func RouteDestination(to, via string) string {
	if to != "default" {
		return to
	}
	addr, err := netip.ParseAddr(via)
	return GlobalNetwork(err == nil && addr.Is6())
}

// IsIPv6 reports whether an address or prefix string is IPv6.
func IsIPv6(s string) bool {
	return strings.Contains(s, ":")
}

// WifiFrequency24 returns the frequency in MHz of a 2.4 GHz channel.
func WifiFrequency24(channel int) (int, error) {
	switch {
	case channel >= 1 && channel <= 13:
		return 2412 + (channel-1)*5, nil
	case channel == 14:
		return 2484, nil
	}
	return 0, fmt.Errorf("invalid 2.4GHz WiFi channel: %d", channel)
}

// Channels 183-196 are valid only in Japan with registration and are left out.
var channels5 = []int{
	7, 8, 9, 11, 12, 16, 32, 34, 36, 38, 40, 42, 44, 46, 48,
	50, 52, 54, 56, 58, 60, 62, 64, 68, 96, 100, 102, 104,
	106, 108, 110, 112, 114, 116, 118, 120, 122, 124, 126,
	128, 132, 134, 136, 138, 140, 142, 144, 149, 151, 153,
	155, 157, 159, 161, 165, 169, 173,
}

// WifiFrequency5 returns the frequency in MHz of a 5 GHz channel.
func WifiFrequency5(channel int) (int, error) {
	for _, c := range channels5 {
		if c == channel {
			return 5000 + channel*5, nil
		}
	}
	return 0, fmt.Errorf("invalid 5GHz WiFi channel: %d", channel)
}
