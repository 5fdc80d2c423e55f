package validation

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// New returns a validator with the network definition tags registered:
// netdef_id, ifname, ip_or_cidr and route_dest.
func New() *validator.Validate {
	v := validator.New()

	custom := map[string]func(string) error{
		"netdef_id":  ValidateDefinitionID,
		"ifname":     ValidateInterfaceName,
		"ip_or_cidr": ValidateIPOrCIDR,
		"route_dest": ValidateRouteDestination,
	}
	for tag, fn := range custom {
		fn := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return fn(fl.Field().String()) == nil
		}); err != nil {
			panic(err)
		}
	}

	// Report document key names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Message returns a human-readable message for a failed tag.
func Message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "ip":
		return "must be a valid IP address"
	case "ipv4":
		return "must be a valid IPv4 address"
	case "ipv6":
		return "must be a valid IPv6 address"
	case "mac":
		return "must be a valid MAC address"
	case "hostname_rfc1123":
		return "must be a valid domain name"
	case "netdef_id":
		return "must be a valid definition id (alphanumeric with -_.:@)"
	case "ifname":
		return "must be a valid interface name (max 15 characters, alphanumeric with -_.)"
	case "ip_or_cidr":
		return "must be an IP address or CIDR prefix"
	case "route_dest":
		return "must be 'default' or a CIDR prefix"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}
