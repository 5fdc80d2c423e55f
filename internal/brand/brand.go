// Package brand holds the product identity, read from the embedded
// brand.json so packaging scripts and the binary agree on names and paths.
package brand

import (
	_ "embed"
	"encoding/json"
	"os"
	"path/filepath"
)

//go:embed brand.json
var brandJSON []byte

// Brand is the contents of brand.json.
type Brand struct {
	Name             string `json:"name"`
	LowerName        string `json:"lowerName"`
	Vendor           string `json:"vendor"`
	Website          string `json:"website"`
	Description      string `json:"description"`
	ConfigEnvPrefix  string `json:"configEnvPrefix"`
	DefaultConfigDir string `json:"defaultConfigDir"`
	BinaryName       string `json:"binaryName"`
	ConfigFileName   string `json:"configFileName"`
	GeneratorName    string `json:"generatorName"`
}

var b = mustParse(brandJSON)

var (
	Name             = b.Name
	ConfigEnvPrefix  = b.ConfigEnvPrefix
	DefaultConfigDir = b.DefaultConfigDir
	BinaryName       = b.BinaryName
	ConfigFileName   = b.ConfigFileName
	// GeneratorName is the argv[0] under which the binary runs as a
	// systemd generator.
	GeneratorName = b.GeneratorName

	// Set at build time via -ldflags.
	Version   = "dev"
	GitCommit = "unknown"
)

func mustParse(data []byte) Brand {
	var v Brand
	if err := json.Unmarshal(data, &v); err != nil {
		panic("brand.json: " + err.Error())
	}
	return v
}

// Get returns the full Brand.
func Get() Brand {
	return b
}

// Env reads <PREFIX>_<name>; Env("ROOT_DIR") reads NETGEN_ROOT_DIR.
func Env(name string) string {
	return os.Getenv(ConfigEnvPrefix + "_" + name)
}

// ConfigDir is NETGEN_CONFIG_DIR, else NETGEN_PREFIX/etc, else the default.
func ConfigDir() string {
	if dir := Env("CONFIG_DIR"); dir != "" {
		return dir
	}
	if prefix := Env("PREFIX"); prefix != "" {
		return filepath.Join(prefix, "etc")
	}
	return DefaultConfigDir
}

// ConfigPath is the tool configuration file under ConfigDir.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), ConfigFileName)
}
