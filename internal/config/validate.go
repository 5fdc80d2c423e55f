package config

import (
	"fmt"
	"net"
	"strings"

	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate checks every field and returns all problems found.
func (c *Config) Validate() ValidationErrors {
	var errs ValidationErrors

	if c.DefaultBackend != "" {
		if _, err := netdef.ParseBackend(c.DefaultBackend); err != nil {
			errs = append(errs, ValidationError{Field: "default_backend", Message: err.Error()})
		}
	}
	for i, name := range c.Backends {
		if _, err := netdef.ParseBackend(name); err != nil {
			errs = append(errs, ValidationError{Field: fmt.Sprintf("backends[%d]", i), Message: err.Error()})
		}
	}

	if c.Hierarchy != nil {
		if _, err := parser.ParseOrder(c.Hierarchy.Order); err != nil {
			errs = append(errs, ValidationError{Field: "hierarchy.order", Message: err.Error()})
		}
		if strings.Contains(c.Hierarchy.Subdir, "/") {
			errs = append(errs, ValidationError{Field: "hierarchy.subdir", Message: "must be a single directory name"})
		}
	}

	if c.Log != nil {
		if _, err := logging.ParseLevel(c.Log.Level); err != nil {
			errs = append(errs, ValidationError{Field: "log.level", Message: err.Error()})
		}
	}

	seen := make(map[string]bool)
	for i, d := range c.Devices {
		field := fmt.Sprintf("device[%s]", d.Name)
		if d.Name == "" {
			field = fmt.Sprintf("device[%d]", i)
			errs = append(errs, ValidationError{Field: field, Message: "device name is required"})
		}
		if seen[d.Name] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate device"})
		}
		seen[d.Name] = true
		if d.MAC != "" {
			if _, err := net.ParseMAC(d.MAC); err != nil {
				errs = append(errs, ValidationError{Field: field + ".mac", Message: fmt.Sprintf("invalid MAC address: %s", d.MAC)})
			}
		}
	}

	return errs
}
