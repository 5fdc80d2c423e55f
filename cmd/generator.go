package cmd

import (
	"fmt"

	"grimm.is/netgen/internal/brand"
	"grimm.is/netgen/internal/logging"
)

// RunGenerator is the systemd generator entry point:
//
//	netgen-generator normal-dir [early-dir late-dir]
//
// Enablement links go into normal-dir. Logging goes to the kernel ring
// buffer since the journal is not running yet.
func RunGenerator(configFile string, args []string) error {
	if len(args) != 1 && len(args) != 3 {
		return fmt.Errorf("usage: %s normal-dir [early-dir late-dir]", brand.GeneratorName)
	}
	logging.SetPrefix(brand.GeneratorName)

	rt, err := load(Options{ConfigFile: configFile})
	if err != nil {
		return err
	}
	defer rt.close()
	if !rt.cfg.Log.Kmsg {
		rt.cfg.Log.Kmsg = true
		rt.log = rt.newLogger(nil)
		logging.SetDefault(rt.log)
	}

	if _, err := rt.generate(rt.cfg.RootDir, args[0]); err != nil {
		rt.log.Error("generation failed", "error", err)
		return err
	}
	return rt.writeMetrics()
}
