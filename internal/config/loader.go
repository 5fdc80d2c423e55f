package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// LoadFile reads and decodes an HCL config file, fills defaults and applies
// environment overrides. A missing file yields DefaultConfig.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultConfig()
		cfg.ApplyEnv()
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := LoadHCL(data, path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadHCL decodes config from HCL bytes and fills defaults.
func LoadHCL(data []byte, filename string) (*Config, error) {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("HCL parse error: %s", diags.Error())
	}

	var versionProbe struct {
		SchemaVersion string `hcl:"schema_version,optional"`
	}
	_ = gohcl.DecodeBody(file.Body, nil, &versionProbe)

	if err := checkVersion(versionProbe.SchemaVersion); err != nil {
		return nil, err
	}

	var cfg Config
	if diags := gohcl.DecodeBody(file.Body, nil, &cfg); diags.HasErrors() {
		return nil, fmt.Errorf("HCL decode error: %s", diags.Error())
	}
	cfg.fill()

	if errs := cfg.Validate(); errs.HasErrors() {
		return nil, errs
	}
	return &cfg, nil
}
