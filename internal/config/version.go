package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a config schema version, "major.minor". Readers accept any
// older minor of their own major.
type Version struct {
	Major, Minor int
}

// CurrentVersion is the schema this build reads and writes.
var CurrentVersion = Version{Major: 1, Minor: 0}

// ParseVersion parses "X.Y". An empty string means a file written before
// schema_version existed and reads as 1.0.
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return Version{Major: 1}, nil
	}
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("invalid schema version %q: expected X.Y", s)
	}
	var v Version
	var err error
	if v.Major, err = strconv.Atoi(major); err != nil || v.Major < 0 {
		return Version{}, fmt.Errorf("invalid schema version %q: bad major", s)
	}
	if v.Minor, err = strconv.Atoi(minor); err != nil || v.Minor < 0 {
		return Version{}, fmt.Errorf("invalid schema version %q: bad minor", s)
	}
	return v, nil
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Readable reports whether a reader for schema r understands v.
func (v Version) Readable(r Version) bool {
	return v.Major == r.Major && v.Minor <= r.Minor
}

// checkVersion rejects schema versions this build cannot read.
func checkVersion(s string) error {
	v, err := ParseVersion(s)
	if err != nil {
		return err
	}
	if v.Major != CurrentVersion.Major {
		return fmt.Errorf("unsupported config schema version %s (this build reads %d.x)", v, CurrentVersion.Major)
	}
	if !v.Readable(CurrentVersion) {
		return fmt.Errorf("config schema version %s is newer than %s", v, CurrentVersion)
	}
	return nil
}
