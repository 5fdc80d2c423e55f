package netdef

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"dario.cat/mergo"
)

// Match selects physical devices by their properties instead of by name.
type Match struct {
	Name       *string `json:"name,omitempty" validate:"omitempty"`
	MACAddress *string `json:"macaddress,omitempty" validate:"omitempty,mac"`
	Driver     *string `json:"driver,omitempty"`
}

// IsZero reports whether no match rule is set.
func (m Match) IsZero() bool {
	return m.Name == nil && m.MACAddress == nil && m.Driver == nil
}

// String renders the rule as "name=... macaddress=... driver=...", set
// properties only.
func (m Match) String() string {
	var parts []string
	for _, p := range []struct {
		key string
		val *string
	}{{"name", m.Name}, {"macaddress", m.MACAddress}, {"driver", m.Driver}} {
		if p.val != nil {
			parts = append(parts, p.key+"="+*p.val)
		}
	}
	return strings.Join(parts, " ")
}

// Settings holds the scalar properties of a definition. Every field is a
// pointer so an explicit false or zero in a later fragment still overrides.
type Settings struct {
	DHCP4      *bool   `json:"dhcp4,omitempty"`
	DHCP6      *bool   `json:"dhcp6,omitempty"`
	Critical   *bool   `json:"critical,omitempty"`
	Optional   *bool   `json:"optional,omitempty"`
	AcceptRA   *bool   `json:"accept-ra,omitempty"`
	WakeOnLAN  *bool   `json:"wakeonlan,omitempty"`
	MTU        *int    `json:"mtu,omitempty" validate:"omitempty,min=68,max=65535"`
	MACAddress *string `json:"macaddress,omitempty" validate:"omitempty,mac"`
	SetName    *string `json:"set-name,omitempty" validate:"omitempty,ifname"`
	Gateway4   *string `json:"gateway4,omitempty" validate:"omitempty,ipv4"`
	Gateway6   *string `json:"gateway6,omitempty" validate:"omitempty,ipv6"`

	// VLAN
	Link   *string `json:"link,omitempty"`
	VLANID *int    `json:"id,omitempty"`

	// Tunnel
	Mode   *string `json:"mode,omitempty"`
	Local  *string `json:"local,omitempty" validate:"omitempty,ip"`
	Remote *string `json:"remote,omitempty" validate:"omitempty,ip"`

	Match Match `json:"match"`
}

// Route is a static route. Routes are compared by their full value when
// lists are unioned.
type Route struct {
	To     string `json:"to" validate:"required,route_dest"`
	Via    string `json:"via,omitempty" validate:"omitempty,ip"`
	From   string `json:"from,omitempty" validate:"omitempty,ip"`
	Metric *int   `json:"metric,omitempty"`
	Table  *int   `json:"table,omitempty"`
	OnLink *bool  `json:"on-link,omitempty"`
}

func (r Route) key() string {
	k := r.To + "|" + r.Via + "|" + r.From
	if r.Metric != nil {
		k += "|m" + strconv.Itoa(*r.Metric)
	}
	if r.Table != nil {
		k += "|t" + strconv.Itoa(*r.Table)
	}
	if r.OnLink != nil {
		k += "|l" + strconv.FormatBool(*r.OnLink)
	}
	return k
}

// Definition is one logical network entity. Definitions are owned by a
// Table; generation passes only ever hold references.
type Definition struct {
	ID       string  `validate:"required,netdef_id"`
	Kind     Kind    `validate:"min=1"`
	Filename string  `validate:"-"`
	Backend  Backend `validate:"min=0,max=3"`

	Settings

	Addresses   []string `validate:"dive,ip_or_cidr"`
	Nameservers []string `validate:"dive,ip"`
	Search      []string `validate:"dive,hostname_rfc1123"`
	Routes      []Route  `validate:"dive"`
	Interfaces  []string `validate:"dive,netdef_id"`

	Parameters   Value `validate:"-"`
	OpenVSwitch  Value `validate:"-"`
	AccessPoints Value `validate:"-"`
	Passthrough  Value `validate:"-"`

	// Filled in by state import.
	Resolved      Backend `validate:"-"`
	Parent        string  `validate:"-"`
	VirtualSwitch bool    `validate:"-"`
}

// New creates an empty definition.
func New(id string, kind Kind) *Definition {
	return &Definition{ID: id, Kind: kind}
}

// UsesVirtualSwitch reports whether the virtual-switch backend consumes this
// definition in addition to its resolved backend.
func (d *Definition) UsesVirtualSwitch() bool {
	return d.VirtualSwitch || d.Kind == KindPort || !d.OpenVSwitch.IsZero()
}

// AppliesTo reports whether backend b consumes the definition: it is routed
// there, or b is the virtual switch and the definition takes part in it.
func (d *Definition) AppliesTo(b Backend) bool {
	if b == BackendNone {
		return false
	}
	return d.Resolved == b || (b == BackendOpenVSwitch && d.UsesVirtualSwitch())
}

// IsMemberOf reports whether the definition is enslaved to parent.
func (d *Definition) IsMemberOf(parent string) bool {
	return d.Parent != "" && d.Parent == parent
}

// InterfaceName returns the name the device will have on the system.
func (d *Definition) InterfaceName() string {
	if d.SetName != nil {
		return *d.SetName
	}
	if d.Match.Name != nil {
		return *d.Match.Name
	}
	return d.ID
}

// Clone returns a deep copy.
func (d *Definition) Clone() *Definition {
	out := &Definition{
		ID:            d.ID,
		Kind:          d.Kind,
		Filename:      d.Filename,
		Backend:       d.Backend,
		Resolved:      d.Resolved,
		Parent:        d.Parent,
		VirtualSwitch: d.VirtualSwitch,
		Parameters:    d.Parameters.Clone(),
		OpenVSwitch:   d.OpenVSwitch.Clone(),
		AccessPoints:  d.AccessPoints.Clone(),
		Passthrough:   d.Passthrough.Clone(),
		Addresses:     append([]string(nil), d.Addresses...),
		Nameservers:   append([]string(nil), d.Nameservers...),
		Search:        append([]string(nil), d.Search...),
		Interfaces:    append([]string(nil), d.Interfaces...),
	}
	for _, r := range d.Routes {
		out.Routes = append(out.Routes, r.clone())
	}
	out.Settings = d.Settings.clone()
	return out
}

func (r Route) clone() Route {
	out := r
	out.Metric = clonePtr(r.Metric)
	out.Table = clonePtr(r.Table)
	out.OnLink = clonePtr(r.OnLink)
	return out
}

func (s Settings) clone() Settings {
	return Settings{
		DHCP4:      clonePtr(s.DHCP4),
		DHCP6:      clonePtr(s.DHCP6),
		Critical:   clonePtr(s.Critical),
		Optional:   clonePtr(s.Optional),
		AcceptRA:   clonePtr(s.AcceptRA),
		WakeOnLAN:  clonePtr(s.WakeOnLAN),
		MTU:        clonePtr(s.MTU),
		MACAddress: clonePtr(s.MACAddress),
		SetName:    clonePtr(s.SetName),
		Gateway4:   clonePtr(s.Gateway4),
		Gateway6:   clonePtr(s.Gateway6),
		Link:       clonePtr(s.Link),
		VLANID:     clonePtr(s.VLANID),
		Mode:       clonePtr(s.Mode),
		Local:      clonePtr(s.Local),
		Remote:     clonePtr(s.Remote),
		Match: Match{
			Name:       clonePtr(s.Match.Name),
			MACAddress: clonePtr(s.Match.MACAddress),
			Driver:     clonePtr(s.Match.Driver),
		},
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Merge folds a later fragment into d following the override policy:
// kinds must be compatible, scalars are overwritten, lists are unioned and
// passthrough blocks are deep-merged.
func (d *Definition) Merge(frag *Definition) error {
	if d.ID != frag.ID {
		return fmt.Errorf("cannot merge %q into %q", frag.ID, d.ID)
	}
	if !d.Kind.CompatibleWith(frag.Kind) {
		return &KindConflict{ID: d.ID, Existing: d.Kind, Incoming: frag.Kind}
	}
	if d.Kind == KindNone {
		d.Kind = frag.Kind
	}
	if frag.Backend != BackendNone {
		d.Backend = frag.Backend
	}
	if frag.Filename != "" && d.Filename == "" {
		d.Filename = frag.Filename
	}

	if err := mergo.Merge(&d.Settings, frag.Settings.clone(), mergo.WithOverride, mergo.WithTransformers(pointerCopy{})); err != nil {
		return fmt.Errorf("merge settings of %s: %w", d.ID, err)
	}

	d.Addresses = UnionStrings(d.Addresses, frag.Addresses)
	d.Nameservers = UnionStrings(d.Nameservers, frag.Nameservers)
	d.Search = UnionStrings(d.Search, frag.Search)
	d.Interfaces = UnionStrings(d.Interfaces, frag.Interfaces)
	d.Routes = UnionRoutes(d.Routes, frag.Routes)

	d.Parameters = MergeValue(d.Parameters, frag.Parameters)
	d.OpenVSwitch = MergeValue(d.OpenVSwitch, frag.OpenVSwitch)
	d.AccessPoints = MergeValue(d.AccessPoints, frag.AccessPoints)
	d.Passthrough = MergeValue(d.Passthrough, frag.Passthrough)
	return nil
}

// KindConflict reports two fragments with the same id but incompatible kinds.
type KindConflict struct {
	ID       string
	Existing Kind
	Incoming Kind
}

func (e *KindConflict) Error() string {
	return fmt.Sprintf("%s: kind %s conflicts with previously defined %s", e.ID, e.Incoming, e.Existing)
}

// pointerCopy makes mergo treat every non-struct pointer as an opaque
// scalar: a non-nil source replaces the destination with a fresh copy.
type pointerCopy struct{}

func (pointerCopy) Transformer(typ reflect.Type) func(dst, src reflect.Value) error {
	if typ.Kind() != reflect.Ptr || typ.Elem().Kind() == reflect.Struct {
		return nil
	}
	return func(dst, src reflect.Value) error {
		if src.IsNil() || !dst.CanSet() {
			return nil
		}
		fresh := reflect.New(typ.Elem())
		fresh.Elem().Set(src.Elem())
		dst.Set(fresh)
		return nil
	}
}

// UnionStrings appends the values of b missing from a, keeping first-seen
// order and dropping duplicates already present in either list.
func UnionStrings(a, b []string) []string {
	if len(a) == 0 && len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

// UnionRoutes is UnionStrings for routes.
func UnionRoutes(a, b []Route) []Route {
	if len(a) == 0 && len(b) == 0 {
		return a
	}
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]Route, 0, len(a)+len(b))
	for _, list := range [][]Route{a, b} {
		for _, r := range list {
			k := r.key()
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r.clone())
		}
	}
	return out
}

// Equivalent compares everything the merge policy governs: origin filename
// and import-resolved fields are ignored.
func (d *Definition) Equivalent(other *Definition) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.ID != other.ID || d.Kind != other.Kind || d.Backend != other.Backend {
		return false
	}
	if !reflect.DeepEqual(d.Settings, other.Settings) {
		return false
	}
	if !equalStrings(d.Addresses, other.Addresses) || !equalStrings(d.Nameservers, other.Nameservers) ||
		!equalStrings(d.Search, other.Search) || !equalStrings(d.Interfaces, other.Interfaces) {
		return false
	}
	if len(d.Routes) != len(other.Routes) {
		return false
	}
	for i := range d.Routes {
		if d.Routes[i].key() != other.Routes[i].key() {
			return false
		}
	}
	return d.Parameters.Equal(other.Parameters) && d.OpenVSwitch.Equal(other.OpenVSwitch) &&
		d.AccessPoints.Equal(other.AccessPoints) && d.Passthrough.Equal(other.Passthrough)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
