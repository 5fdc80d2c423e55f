package cmd

import (
	"fmt"
	"io"
	"strings"

	"grimm.is/netgen/internal/brand"
	"grimm.is/netgen/internal/netdef"
)

// RunInfo prints the version and what this build supports.
func RunInfo(w io.Writer) error {
	var kinds, backends []string
	for _, k := range netdef.Kinds() {
		kinds = append(kinds, k.Section())
	}
	for _, b := range netdef.Backends() {
		backends = append(backends, b.String())
	}

	_, err := fmt.Fprintf(w, "%s %s (%s)\nconfig: %s\nbackends: %s\nsections: %s\n",
		brand.Name, brand.Version, brand.GitCommit,
		brand.ConfigPath(),
		strings.Join(backends, ", "),
		strings.Join(kinds, ", "))
	return err
}
