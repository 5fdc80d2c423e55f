package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// DefaultSubdir is the directory searched inside every tier.
const DefaultSubdir = "netgen"

// Tiers lists the hierarchy tiers in increasing precedence.
var Tiers = []string{"lib", "etc", "run"}

// HierarchyOrder selects how files from different tiers are combined.
type HierarchyOrder string

const (
	// OrderBasename lets a later tier shadow a file with the same name in an
	// earlier tier, then loads the survivors sorted by file name.
	OrderBasename HierarchyOrder = "basename"
	// OrderTier loads tier by tier, lexicographically within each tier.
	OrderTier HierarchyOrder = "tier"
)

// ParseOrder validates a configured order name.
func ParseOrder(s string) (HierarchyOrder, error) {
	switch HierarchyOrder(s) {
	case OrderBasename, OrderTier:
		return HierarchyOrder(s), nil
	case "":
		return OrderBasename, nil
	}
	return "", fmt.Errorf("unknown hierarchy order %q (want %q or %q)", s, OrderBasename, OrderTier)
}

// HierarchyFiles lists the documents under root in load order.
func HierarchyFiles(root, subdir string, order HierarchyOrder) ([]string, error) {
	if _, err := os.ReadDir(root); err != nil {
		return nil, &ReadError{Path: root, Err: err}
	}

	var perTier [][]string
	for _, tier := range Tiers {
		matches, err := filepath.Glob(filepath.Join(root, tier, subdir, "*.yaml"))
		if err != nil {
			return nil, &ReadError{Path: root, Err: err}
		}
		var files []string
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && info.Mode().IsRegular() {
				files = append(files, m)
			}
		}
		sort.Strings(files)
		perTier = append(perTier, files)
	}

	if order == OrderTier {
		var out []string
		for _, files := range perTier {
			out = append(out, files...)
		}
		return out, nil
	}

	byName := make(map[string]string)
	for _, files := range perTier {
		for _, f := range files {
			byName[filepath.Base(f)] = f
		}
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, byName[name])
	}
	return out, nil
}

// LoadHierarchy loads every document under root. On any failure the
// accumulator is restored to what it held before the call.
func (p *Parser) LoadHierarchy(root string) error {
	files, err := HierarchyFiles(root, p.opts.Subdir, p.opts.Order)
	if err != nil {
		return err
	}

	saved := p.snapshot()
	for _, f := range files {
		if err := p.LoadFile(f); err != nil {
			p.restore(saved)
			p.log.Warn("hierarchy load aborted", "root", root, "path", f, "error", err)
			return err
		}
	}
	p.log.Info("hierarchy loaded", "root", root, "files", len(files), "definitions", p.Len())
	return nil
}
