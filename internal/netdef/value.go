package netdef

import (
	"sort"
	"strings"
)

// ValueKind tags the variant held by a Value.
type ValueKind uint8

const (
	ValueNone ValueKind = iota
	ValueScalar
	ValueList
	ValueMap
)

// Value is an open-ended passthrough setting: a scalar, a list or a nested map.
// Backend-specific blocks are kept as Values so new settings need no core changes.
type Value struct {
	Kind   ValueKind
	Scalar string
	List   []Value
	Map    map[string]Value
}

// ScalarValue creates a scalar Value.
func ScalarValue(s string) Value {
	return Value{Kind: ValueScalar, Scalar: s}
}

// ListValue creates a list Value.
func ListValue(items ...Value) Value {
	return Value{Kind: ValueList, List: items}
}

// MapValue creates a map Value. A nil map yields an empty map.
func MapValue(m map[string]Value) Value {
	if m == nil {
		m = map[string]Value{}
	}
	return Value{Kind: ValueMap, Map: m}
}

// IsZero reports whether the Value is unset.
func (v Value) IsZero() bool {
	return v.Kind == ValueNone
}

// Keys returns the map keys in sorted order. Non-map values have no keys.
func (v Value) Keys() []string {
	if v.Kind != ValueMap {
		return nil
	}
	keys := make([]string, 0, len(v.Map))
	for k := range v.Map {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get looks up a dotted path ("other-config.disable-in-band") in nested maps.
func (v Value) Get(path string) (Value, bool) {
	cur := v
	for _, part := range strings.Split(path, ".") {
		if cur.Kind != ValueMap {
			return Value{}, false
		}
		next, ok := cur.Map[part]
		if !ok {
			return Value{}, false
		}
		cur = next
	}
	return cur, true
}

// String returns the scalar content, or "" for other variants.
func (v Value) String() string {
	if v.Kind == ValueScalar {
		return v.Scalar
	}
	return ""
}

// Strings flattens a scalar or a list of scalars.
func (v Value) Strings() []string {
	switch v.Kind {
	case ValueScalar:
		return []string{v.Scalar}
	case ValueList:
		out := make([]string, 0, len(v.List))
		for _, item := range v.List {
			if item.Kind == ValueScalar {
				out = append(out, item.Scalar)
			}
		}
		return out
	}
	return nil
}

// Clone returns a deep copy.
func (v Value) Clone() Value {
	out := Value{Kind: v.Kind, Scalar: v.Scalar}
	if v.List != nil {
		out.List = make([]Value, len(v.List))
		for i, item := range v.List {
			out.List[i] = item.Clone()
		}
	}
	if v.Map != nil {
		out.Map = make(map[string]Value, len(v.Map))
		for k, item := range v.Map {
			out.Map[k] = item.Clone()
		}
	}
	return out
}

// Equal compares two values structurally.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case ValueScalar:
		return v.Scalar == other.Scalar
	case ValueList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
	case ValueMap:
		if len(v.Map) != len(other.Map) {
			return false
		}
		for k, item := range v.Map {
			o, ok := other.Map[k]
			if !ok || !item.Equal(o) {
				return false
			}
		}
	}
	return true
}

// MergeValue deep-merges src over dst. Maps merge key by key with src winning;
// any other combination is replaced by src. An unset src leaves dst alone.
func MergeValue(dst, src Value) Value {
	if src.Kind == ValueNone {
		return dst
	}
	if dst.Kind != ValueMap || src.Kind != ValueMap {
		return src.Clone()
	}
	out := dst.Clone()
	for k, item := range src.Map {
		if existing, ok := out.Map[k]; ok {
			out.Map[k] = MergeValue(existing, item)
			continue
		}
		out.Map[k] = item.Clone()
	}
	return out
}
