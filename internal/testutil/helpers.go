// Package testutil holds helpers shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// RequireKernel skips the test unless NETGEN_KERNEL_TEST is set. Tests that
// talk to the running kernel (netlink, ethtool) only run where that is safe.
func RequireKernel(t *testing.T) {
	t.Helper()
	if os.Getenv("NETGEN_KERNEL_TEST") == "" {
		t.Skip("Skipping test: requires NETGEN_KERNEL_TEST environment")
	}
}

// WriteTree creates files under a new temporary root. Keys are slash
// separated paths relative to the root.
func WriteTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return root
}
