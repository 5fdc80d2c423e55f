package parser

import (
	"gopkg.in/yaml.v3"

	"grimm.is/netgen/internal/netdef"
)

// keyHandler decodes one definition key. kinds restricts which definition
// kinds may carry the key; nil means any.
type keyHandler struct {
	kinds []netdef.Kind
	fn    func(d *decoder, def *netdef.Definition, n *yaml.Node) error
}

func (h keyHandler) allows(k netdef.Kind) bool {
	if h.kinds == nil {
		return true
	}
	for _, allowed := range h.kinds {
		if allowed == k {
			return true
		}
	}
	return false
}

var (
	physical = []netdef.Kind{netdef.KindEthernet, netdef.KindWifi, netdef.KindModem}
	members  = []netdef.Kind{netdef.KindBridge, netdef.KindBond, netdef.KindVRF}
)

var definitionKeys map[string]keyHandler

func init() {
	definitionKeys = map[string]keyHandler{
		"dhcp4":      {fn: boolKey(func(d *netdef.Definition) **bool { return &d.DHCP4 })},
		"dhcp6":      {fn: boolKey(func(d *netdef.Definition) **bool { return &d.DHCP6 })},
		"critical":   {fn: boolKey(func(d *netdef.Definition) **bool { return &d.Critical })},
		"optional":   {fn: boolKey(func(d *netdef.Definition) **bool { return &d.Optional })},
		"accept-ra":  {fn: boolKey(func(d *netdef.Definition) **bool { return &d.AcceptRA })},
		"wakeonlan":  {kinds: physical, fn: boolKey(func(d *netdef.Definition) **bool { return &d.WakeOnLAN })},
		"mtu":        {fn: intKey(func(d *netdef.Definition) **int { return &d.MTU })},
		"macaddress": {fn: stringKey(func(d *netdef.Definition) **string { return &d.MACAddress })},
		"set-name":   {kinds: physical, fn: stringKey(func(d *netdef.Definition) **string { return &d.SetName })},
		"gateway4":   {fn: stringKey(func(d *netdef.Definition) **string { return &d.Gateway4 })},
		"gateway6":   {fn: stringKey(func(d *netdef.Definition) **string { return &d.Gateway6 })},

		"link": {kinds: []netdef.Kind{netdef.KindVLAN}, fn: stringKey(func(d *netdef.Definition) **string { return &d.Link })},
		"id":   {kinds: []netdef.Kind{netdef.KindVLAN}, fn: intKey(func(d *netdef.Definition) **int { return &d.VLANID })},

		"mode":   {kinds: []netdef.Kind{netdef.KindTunnel}, fn: stringKey(func(d *netdef.Definition) **string { return &d.Mode })},
		"local":  {kinds: []netdef.Kind{netdef.KindTunnel}, fn: stringKey(func(d *netdef.Definition) **string { return &d.Local })},
		"remote": {kinds: []netdef.Kind{netdef.KindTunnel}, fn: stringKey(func(d *netdef.Definition) **string { return &d.Remote })},

		"renderer":    {fn: decodeRenderer},
		"addresses":   {fn: decodeAddresses},
		"nameservers": {fn: decodeNameservers},
		"routes":      {fn: decodeRoutes},
		"match":       {kinds: physical, fn: decodeMatch},
		"interfaces":  {kinds: members, fn: decodeInterfaces},

		"parameters":     {kinds: []netdef.Kind{netdef.KindBridge, netdef.KindBond, netdef.KindTunnel, netdef.KindVRF}, fn: valueKey(func(d *netdef.Definition) *netdef.Value { return &d.Parameters })},
		"table":          {kinds: []netdef.Kind{netdef.KindVRF}, fn: decodeTable},
		"openvswitch":    {fn: valueKey(func(d *netdef.Definition) *netdef.Value { return &d.OpenVSwitch })},
		"access-points":  {kinds: []netdef.Kind{netdef.KindWifi}, fn: decodeAccessPoints},
		"networkmanager": {fn: decodeNetworkManager},
	}
}

func boolKey(field func(*netdef.Definition) **bool) func(*decoder, *netdef.Definition, *yaml.Node) error {
	return func(d *decoder, def *netdef.Definition, n *yaml.Node) error {
		var v bool
		if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil {
			return d.errorf(n, "%s: invalid boolean value '%s'", def.ID, n.Value)
		}
		*field(def) = &v
		return nil
	}
}

func intKey(field func(*netdef.Definition) **int) func(*decoder, *netdef.Definition, *yaml.Node) error {
	return func(d *decoder, def *netdef.Definition, n *yaml.Node) error {
		var v int
		if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil {
			return d.errorf(n, "%s: invalid unsigned int value '%s'", def.ID, n.Value)
		}
		if v < 0 {
			return d.errorf(n, "%s: invalid unsigned int value '%s'", def.ID, n.Value)
		}
		*field(def) = &v
		return nil
	}
}

func stringKey(field func(*netdef.Definition) **string) func(*decoder, *netdef.Definition, *yaml.Node) error {
	return func(d *decoder, def *netdef.Definition, n *yaml.Node) error {
		if n.Kind != yaml.ScalarNode || isNull(n) {
			return d.errorf(n, "%s: expected scalar", def.ID)
		}
		v := n.Value
		*field(def) = &v
		return nil
	}
}

func valueKey(field func(*netdef.Definition) *netdef.Value) func(*decoder, *netdef.Definition, *yaml.Node) error {
	return func(d *decoder, def *netdef.Definition, n *yaml.Node) error {
		if n.Kind != yaml.MappingNode && !isNull(n) {
			return d.errorf(n, "%s: expected mapping", def.ID)
		}
		v, err := d.value(n)
		if err != nil {
			return err
		}
		if v.IsZero() {
			v = netdef.MapValue(nil)
		}
		*field(def) = netdef.MergeValue(*field(def), v)
		return nil
	}
}

// table is shorthand for parameters.table on VRFs.
func decodeTable(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	var v int
	if n.Kind != yaml.ScalarNode || n.Decode(&v) != nil || v < 0 {
		return d.errorf(n, "%s: invalid unsigned int value '%s'", def.ID, n.Value)
	}
	table := netdef.MapValue(map[string]netdef.Value{"table": netdef.ScalarValue(n.Value)})
	def.Parameters = netdef.MergeValue(def.Parameters, table)
	return nil
}

func decodeRenderer(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	b, err := netdef.ParseBackend(n.Value)
	if err != nil || n.Kind != yaml.ScalarNode {
		return d.errorf(n, "%s: unknown renderer '%s'", def.ID, n.Value)
	}
	def.Backend = b
	return nil
}

func decodeAddresses(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	list, err := d.strings(n, "addresses")
	if err != nil {
		return err
	}
	def.Addresses = netdef.UnionStrings(def.Addresses, list)
	return nil
}

func decodeInterfaces(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	list, err := d.strings(n, "interfaces")
	if err != nil {
		return err
	}
	def.Interfaces = netdef.UnionStrings(def.Interfaces, list)
	return nil
}

func decodeNameservers(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "%s: expected mapping for 'nameservers'", def.ID)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		list, err := d.strings(val, "nameservers."+key.Value)
		if err != nil {
			return err
		}
		switch key.Value {
		case "addresses":
			def.Nameservers = netdef.UnionStrings(def.Nameservers, list)
		case "search":
			def.Search = netdef.UnionStrings(def.Search, list)
		default:
			return d.errorf(key, "%s: unknown key '%s'", def.ID, key.Value)
		}
	}
	return nil
}

func decodeMatch(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "%s: expected mapping for 'match'", def.ID)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		if val.Kind != yaml.ScalarNode {
			return d.errorf(val, "%s: expected scalar", def.ID)
		}
		v := val.Value
		switch key.Value {
		case "name":
			def.Match.Name = &v
		case "macaddress":
			def.Match.MACAddress = &v
		case "driver":
			def.Match.Driver = &v
		default:
			return d.errorf(key, "%s: unknown key '%s'", def.ID, key.Value)
		}
	}
	return nil
}

type routeDoc struct {
	To     string `yaml:"to"`
	Via    string `yaml:"via"`
	From   string `yaml:"from"`
	Metric *int   `yaml:"metric"`
	Table  *int   `yaml:"table"`
	OnLink *bool  `yaml:"on-link"`
}

var routeKeys = map[string]bool{"to": true, "via": true, "from": true, "metric": true, "table": true, "on-link": true}

func decodeRoutes(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return d.errorf(n, "%s: expected sequence for 'routes'", def.ID)
	}
	routes := make([]netdef.Route, 0, len(n.Content))
	for _, entry := range n.Content {
		entry = resolve(entry)
		if entry.Kind != yaml.MappingNode {
			return d.errorf(entry, "%s: expected mapping in 'routes'", def.ID)
		}
		for i := 0; i < len(entry.Content); i += 2 {
			if !routeKeys[entry.Content[i].Value] {
				return d.errorf(entry.Content[i], "%s: unknown key '%s'", def.ID, entry.Content[i].Value)
			}
		}
		var r routeDoc
		if err := entry.Decode(&r); err != nil {
			return d.errorf(entry, "%s: invalid route: %v", def.ID, err)
		}
		if r.To == "" {
			return d.errorf(entry, "%s: route requires 'to'", def.ID)
		}
		routes = append(routes, netdef.Route{
			To: r.To, Via: r.Via, From: r.From,
			Metric: r.Metric, Table: r.Table, OnLink: r.OnLink,
		})
	}
	def.Routes = netdef.UnionRoutes(def.Routes, routes)
	return nil
}

// access-points are keyed by SSID; every entry must be a mapping (or empty).
func decodeAccessPoints(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "%s: expected mapping for 'access-points'", def.ID)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		val := resolve(n.Content[i+1])
		if val.Kind != yaml.MappingNode && !isNull(val) {
			return d.errorf(val, "%s: access point '%s' must be a mapping", def.ID, n.Content[i].Value)
		}
	}
	v, err := d.value(n)
	if err != nil {
		return err
	}
	for ssid, ap := range v.Map {
		if ap.IsZero() {
			v.Map[ssid] = netdef.MapValue(nil)
		}
	}
	def.AccessPoints = netdef.MergeValue(def.AccessPoints, v)
	return nil
}

func decodeNetworkManager(d *decoder, def *netdef.Definition, n *yaml.Node) error {
	if n.Kind != yaml.MappingNode {
		return d.errorf(n, "%s: expected mapping for 'networkmanager'", def.ID)
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], resolve(n.Content[i+1])
		if key.Value != "passthrough" {
			return d.errorf(key, "%s: unknown key '%s'", def.ID, key.Value)
		}
		if val.Kind != yaml.MappingNode {
			return d.errorf(val, "%s: expected mapping for 'passthrough'", def.ID)
		}
		v, err := d.value(val)
		if err != nil {
			return err
		}
		def.Passthrough = netdef.MergeValue(def.Passthrough, v)
	}
	return nil
}
