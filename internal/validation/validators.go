package validation

import (
	"fmt"
	"net"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	// Kernel interface names: alphanumeric, dash, underscore, dot (for VLANs), max 15 chars
	interfaceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{1,15}$`)

	// Definition ids also name generated files, so no path separators.
	definitionIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_.:@-]+$`)

	// Characters that must never reach a generated unit or keyfile
	dangerousChars = []string{";", "|", "&", "$", "`", "(", ")", "<", ">", "\\", "\"", "'", "\n", "\r"}
)

// TunnelModes lists the tunnel modes accepted in documents.
var TunnelModes = []string{
	"sit", "gre", "ip6gre", "ipip", "ipip6", "ip6ip6", "vti", "vti6",
	"gretap", "ip6gretap", "isatap", "wireguard", "vxlan",
}

// ValidateInterfaceName validates a network interface name
func ValidateInterfaceName(name string) error {
	if name == "" {
		return fmt.Errorf("interface name cannot be empty")
	}

	if len(name) > 15 {
		return fmt.Errorf("interface name too long (max 15 characters): %s", name)
	}

	if !interfaceNameRegex.MatchString(name) {
		return fmt.Errorf("invalid interface name: %s (must be alphanumeric with -_.)", name)
	}

	return nil
}

// ValidateDefinitionID validates the id of a network definition.
func ValidateDefinitionID(id string) error {
	if id == "" {
		return fmt.Errorf("definition id cannot be empty")
	}

	if len(id) > 255 {
		return fmt.Errorf("definition id too long (max 255 characters)")
	}

	for _, char := range dangerousChars {
		if strings.Contains(id, char) {
			return fmt.Errorf("definition id contains dangerous character: %q", char)
		}
	}

	if id == "." || id == ".." || !definitionIDRegex.MatchString(id) {
		return fmt.Errorf("invalid definition id: %s (must be alphanumeric with -_.:@)", id)
	}

	return nil
}

// ValidateIPOrCIDR validates an IP address or CIDR range
func ValidateIPOrCIDR(s string) error {
	if s == "" {
		return fmt.Errorf("IP/CIDR cannot be empty")
	}

	if strings.Contains(s, "/") {
		_, _, err := net.ParseCIDR(s)
		if err != nil {
			return fmt.Errorf("invalid CIDR: %w", err)
		}
		return nil
	}

	ip := net.ParseIP(s)
	if ip == nil {
		return fmt.Errorf("invalid IP address: %s", s)
	}

	return nil
}

// ValidateRouteDestination accepts "default" or a CIDR prefix.
func ValidateRouteDestination(s string) error {
	if s == "default" {
		return nil
	}
	if _, _, err := net.ParseCIDR(s); err != nil {
		return fmt.Errorf("invalid route destination: %s (must be 'default' or a CIDR)", s)
	}
	return nil
}

// ValidateVLANID validates an 802.1Q VLAN id
func ValidateVLANID(id int) error {
	if id < 1 || id > 4094 {
		return fmt.Errorf("invalid VLAN id: %d (must be 1-4094)", id)
	}
	return nil
}

// ValidateTunnelMode validates a tunnel mode name
func ValidateTunnelMode(mode string) error {
	if err := ValidateAllowlist(strings.ToLower(mode), TunnelModes); err != nil {
		return fmt.Errorf("invalid tunnel mode: %s (must be one of: %s)", mode, strings.Join(TunnelModes, ", "))
	}
	return nil
}

// ValidateFileHint validates a bare output file name (no directories).
func ValidateFileHint(hint string) error {
	if hint == "" {
		return fmt.Errorf("file name cannot be empty")
	}
	if strings.Contains(hint, "\x00") {
		return fmt.Errorf("null byte in file name")
	}
	if hint != filepath.Base(hint) || strings.Contains(hint, "..") {
		return fmt.Errorf("file name must not contain directories: %s", hint)
	}
	return nil
}

// ValidateAllowlist checks if a value is in an allowed list
func ValidateAllowlist(value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("value not in allowlist: %s", value)
}

// SanitizeString removes dangerous characters from a string (for display purposes)
func SanitizeString(s string) string {
	for _, char := range dangerousChars {
		s = strings.ReplaceAll(s, char, "")
	}
	return s
}
