package config

import (
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// GenerateHCL encodes cfg as an HCL document. Empty optional values are
// omitted, so a default config encodes to a short file.
func GenerateHCL(cfg *Config) []byte {
	f := hclwrite.NewEmptyFile()
	body := f.Body()

	body.SetAttributeValue("schema_version", cty.StringVal(orDefault(cfg.SchemaVersion, CurrentVersion.String())))
	setString(body, "root_dir", cfg.RootDir)
	setString(body, "generator_dir", cfg.GeneratorDir)
	setString(body, "default_backend", cfg.DefaultBackend)
	if len(cfg.Backends) > 0 {
		vals := make([]cty.Value, 0, len(cfg.Backends))
		for _, b := range cfg.Backends {
			vals = append(vals, cty.StringVal(b))
		}
		body.SetAttributeValue("backends", cty.ListVal(vals))
	}

	if h := cfg.Hierarchy; h != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("hierarchy", nil).Body()
		setString(b, "root", h.Root)
		setString(b, "subdir", h.Subdir)
		setString(b, "order", h.Order)
	}

	if l := cfg.Log; l != nil {
		body.AppendNewline()
		b := body.AppendNewBlock("log", nil).Body()
		setString(b, "level", l.Level)
		if l.JSON {
			b.SetAttributeValue("json", cty.True)
		}
		if l.Kmsg {
			b.SetAttributeValue("kmsg", cty.True)
		}
	}

	if m := cfg.Metrics; m != nil && m.Textfile != "" {
		body.AppendNewline()
		b := body.AppendNewBlock("metrics", nil).Body()
		b.SetAttributeValue("textfile", cty.StringVal(m.Textfile))
	}

	for _, d := range cfg.Devices {
		body.AppendNewline()
		b := body.AppendNewBlock("device", []string{d.Name}).Body()
		setString(b, "mac", d.MAC)
		setString(b, "driver", d.Driver)
	}

	return f.Bytes()
}

func setString(body *hclwrite.Body, name, value string) {
	if value != "" {
		body.SetAttributeValue(name, cty.StringVal(value))
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
