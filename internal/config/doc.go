// Package config handles the tool configuration file.
//
// # Overview
//
// netgen reads an optional HCL file (by default /etc/netgen/netgen.hcl) that
// controls where documents are read from, where artifacts are written and
// which backends run. The network documents themselves are YAML and are
// handled by the parser package; this file only configures the tool.
//
// # Example
//
//	schema_version  = "1.0"
//	root_dir        = "/"
//	generator_dir   = "/run/systemd/generator"
//	default_backend = "networkd"
//	backends        = ["networkd", "NetworkManager"]
//
//	hierarchy {
//	  order = "basename"
//	}
//
//	log {
//	  level = "debug"
//	}
//
//	metrics {
//	  textfile = "/var/lib/node_exporter/netgen.prom"
//	}
//
//	device "eth0" {
//	  mac    = "00:11:22:33:44:55"
//	  driver = "e1000e"
//	}
//
// device blocks describe the hardware of an alternate root. When any are
// present, link resolution uses them instead of querying the kernel.
//
// # Environment
//
// NETGEN_ROOT_DIR and NETGEN_GENERATOR_DIR override the file; see
// [Config.ApplyEnv].
package config
