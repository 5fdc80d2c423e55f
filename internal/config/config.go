package config

import (
	"grimm.is/netgen/internal/brand"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/network"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/state"
)

// Config is the tool configuration.
type Config struct {
	SchemaVersion  string   `hcl:"schema_version,optional"`
	RootDir        string   `hcl:"root_dir,optional"`
	GeneratorDir   string   `hcl:"generator_dir,optional"`
	DefaultBackend string   `hcl:"default_backend,optional"`
	Backends       []string `hcl:"backends,optional"`

	Hierarchy *HierarchyConfig `hcl:"hierarchy,block"`
	Log       *LogConfig       `hcl:"log,block"`
	Metrics   *MetricsConfig   `hcl:"metrics,block"`
	Devices   []DeviceConfig   `hcl:"device,block"`
}

// HierarchyConfig controls where documents are read from.
type HierarchyConfig struct {
	// Root is searched for lib/, etc/ and run/ tiers. Empty means RootDir.
	Root   string `hcl:"root,optional"`
	Subdir string `hcl:"subdir,optional"`
	Order  string `hcl:"order,optional"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `hcl:"level,optional"`
	JSON  bool   `hcl:"json,optional"`
	// Kmsg sends log lines to the kernel ring buffer.
	Kmsg bool `hcl:"kmsg,optional"`
}

// MetricsConfig controls the node-exporter textfile output.
type MetricsConfig struct {
	Textfile string `hcl:"textfile,optional"`
}

// DeviceConfig describes a device of the target system.
type DeviceConfig struct {
	Name   string `hcl:"name,label"`
	MAC    string `hcl:"mac,optional"`
	Driver string `hcl:"driver,optional"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		SchemaVersion:  CurrentVersion.String(),
		RootDir:        "/",
		DefaultBackend: netdef.DefaultBackend.String(),
		Hierarchy:      &HierarchyConfig{Subdir: parser.DefaultSubdir, Order: string(parser.OrderBasename)},
		Log:            &LogConfig{Level: "info"},
		Metrics:        &MetricsConfig{},
	}
}

// ApplyEnv overrides fields from brand-prefixed environment variables.
func (c *Config) ApplyEnv() {
	if v := brand.Env("ROOT_DIR"); v != "" {
		c.RootDir = v
	}
	if v := brand.Env("GENERATOR_DIR"); v != "" {
		c.GeneratorDir = v
	}
	if v := brand.Env("LOG_LEVEL"); v != "" {
		c.log().Level = v
	}
}

// fill replaces missing blocks and attributes with defaults.
func (c *Config) fill() {
	d := DefaultConfig()
	if c.SchemaVersion == "" {
		c.SchemaVersion = d.SchemaVersion
	}
	if c.RootDir == "" {
		c.RootDir = d.RootDir
	}
	if c.DefaultBackend == "" {
		c.DefaultBackend = d.DefaultBackend
	}
	if c.Hierarchy == nil {
		c.Hierarchy = d.Hierarchy
	}
	if c.Hierarchy.Subdir == "" {
		c.Hierarchy.Subdir = parser.DefaultSubdir
	}
	if c.Hierarchy.Order == "" {
		c.Hierarchy.Order = string(parser.OrderBasename)
	}
	if c.Log == nil {
		c.Log = d.Log
	}
	if c.Metrics == nil {
		c.Metrics = d.Metrics
	}
	if len(c.Backends) == 0 {
		c.Backends = nil
	}
	if len(c.Devices) == 0 {
		c.Devices = nil
	}
}

func (c *Config) log() *LogConfig {
	if c.Log == nil {
		c.Log = &LogConfig{}
	}
	return c.Log
}

// HierarchyRoot returns the directory whose tiers hold the documents.
func (c *Config) HierarchyRoot() string {
	if c.Hierarchy != nil && c.Hierarchy.Root != "" {
		return c.Hierarchy.Root
	}
	return c.RootDir
}

// BackendList parses Backends. nil means every backend.
func (c *Config) BackendList() ([]netdef.Backend, error) {
	if len(c.Backends) == 0 {
		return nil, nil
	}
	out := make([]netdef.Backend, 0, len(c.Backends))
	for _, name := range c.Backends {
		b, err := netdef.ParseBackend(name)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Resolver returns a link resolver for the configured devices, or nil when
// none are configured.
func (c *Config) Resolver() state.LinkResolver {
	if len(c.Devices) == 0 {
		return nil
	}
	devices := make([]network.Device, 0, len(c.Devices))
	for _, d := range c.Devices {
		devices = append(devices, network.Device{Name: d.Name, MAC: d.MAC, Driver: d.Driver})
	}
	return network.NewResolver(network.NewDryRunNetlinker(devices...))
}
