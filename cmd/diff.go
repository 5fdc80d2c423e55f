package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/pmezard/go-difflib/difflib"

	"grimm.is/netgen/internal/i18n"
	"grimm.is/netgen/internal/session"
)

// RunDiff generates into a scratch root and compares the result with the
// artifacts installed under the configured root. It prints a unified diff
// per changed file and returns ErrDiffers when anything differs.
func RunDiff(w io.Writer, opts Options) error {
	rt, err := load(opts)
	if err != nil {
		return err
	}
	defer rt.close()

	scratch, err := os.MkdirTemp("", "netgen-diff-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(scratch)

	if _, err := rt.generate(scratch, ""); err != nil {
		return err
	}

	installed, err := artifactSet(rt, rt.cfg.RootDir)
	if err != nil {
		return err
	}
	generated, err := artifactSet(rt, scratch)
	if err != nil {
		return err
	}

	paths := make(map[string]struct{}, len(installed)+len(generated))
	for p := range installed {
		paths[p] = struct{}{}
	}
	for p := range generated {
		paths[p] = struct{}{}
	}
	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	changed := 0
	for _, rel := range sorted {
		a, err := readOptional(rt.cfg.RootDir, rel, installed)
		if err != nil {
			return err
		}
		b, err := readOptional(scratch, rel, generated)
		if err != nil {
			return err
		}
		if a == b {
			continue
		}
		changed++
		text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(a),
			B:        difflib.SplitLines(b),
			FromFile: "installed/" + rel,
			ToFile:   "generated/" + rel,
			Context:  3,
		})
		if err != nil {
			return err
		}
		fmt.Fprint(w, text)
	}

	if changed == 0 {
		Printer.Fprintf(w, i18n.MsgNoChanges)
		return nil
	}
	return fmt.Errorf("%w: %d files", ErrDiffers, changed)
}

// artifactSet lists every backend's artifacts under root.
func artifactSet(rt *runtime, root string) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	for _, w := range session.DefaultWriters(rt.log) {
		paths, err := w.Artifacts(root)
		if err != nil {
			return nil, err
		}
		for _, p := range paths {
			set[p] = struct{}{}
		}
	}
	return set, nil
}

func readOptional(root, rel string, present map[string]struct{}) (string, error) {
	if _, ok := present[rel]; !ok {
		return "", nil
	}
	data, err := os.ReadFile(filepath.Join(root, rel))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}
