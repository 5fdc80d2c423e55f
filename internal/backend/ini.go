package backend

import (
	"strings"
)

// INI builds an INI-style file with sections and keys kept in insertion
// order. Repeated sections and keys are allowed, as systemd needs them.
type INI struct {
	sections []*Section
}

// Section is one [name] block.
type Section struct {
	Name string
	keys []kv
}

type kv struct {
	key, value string
}

// Add appends a new section, even if one with the same name exists.
func (f *INI) Add(name string) *Section {
	s := &Section{Name: name}
	f.sections = append(f.sections, s)
	return s
}

// Section returns the first section with this name, creating it if needed.
func (f *INI) Section(name string) *Section {
	for _, s := range f.sections {
		if s.Name == name {
			return s
		}
	}
	return f.Add(name)
}

// Has reports whether a section exists.
func (f *INI) Has(name string) bool {
	for _, s := range f.sections {
		if s.Name == name {
			return true
		}
	}
	return false
}

// Set replaces the value of key, or appends it.
func (s *Section) Set(key, value string) *Section {
	for i := range s.keys {
		if s.keys[i].key == key {
			s.keys[i].value = value
			return s
		}
	}
	return s.Append(key, value)
}

// Append adds key even if it is already present.
func (s *Section) Append(key, value string) *Section {
	s.keys = append(s.keys, kv{key, value})
	return s
}

// Get returns the value of key.
func (s *Section) Get(key string) (string, bool) {
	for _, e := range s.keys {
		if e.key == key {
			return e.value, true
		}
	}
	return "", false
}

// Len returns the number of keys.
func (s *Section) Len() int {
	return len(s.keys)
}

// String renders the file. Empty sections are left out.
func (f *INI) String() string {
	var b strings.Builder
	first := true
	for _, s := range f.sections {
		if len(s.keys) == 0 {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		b.WriteString("[" + s.Name + "]\n")
		for _, e := range s.keys {
			b.WriteString(e.key + "=" + e.value + "\n")
		}
	}
	return b.String()
}
