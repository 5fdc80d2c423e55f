package parser

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grimm.is/netgen/internal/testutil"
)

func tierDir(root, tier string) string {
	return filepath.Join(root, tier, DefaultSubdir)
}

func TestHierarchyFiles_Shadowing(t *testing.T) {
	root := testutil.WriteTree(t, map[string]string{
		"lib/netgen/01-base.yaml": "network: {}\n",
		"lib/netgen/50-wifi.yaml": "network: {}\n",
		"etc/netgen/50-wifi.yaml": "network: {}\n",
		"run/netgen/10-run.yaml":  "network: {}\n",
		"etc/netgen/notes.txt":    "ignored",
	})

	files, err := HierarchyFiles(root, DefaultSubdir, OrderBasename)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tierDir(root, "lib"), "01-base.yaml"),
		filepath.Join(tierDir(root, "run"), "10-run.yaml"),
		filepath.Join(tierDir(root, "etc"), "50-wifi.yaml"),
	}, files)

	files, err = HierarchyFiles(root, DefaultSubdir, OrderTier)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(tierDir(root, "lib"), "01-base.yaml"),
		filepath.Join(tierDir(root, "lib"), "50-wifi.yaml"),
		filepath.Join(tierDir(root, "etc"), "50-wifi.yaml"),
		filepath.Join(tierDir(root, "run"), "10-run.yaml"),
	}, files)
}

func TestLoadHierarchy_LaterTierOverrides(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, tierDir(root, "lib"), "10-a.yaml", `
network:
  ethernets:
    eth0:
      dhcp4: true
      mtu: 1500
`)
	writeDoc(t, tierDir(root, "run"), "20-b.yaml", `
network:
  ethernets:
    eth0:
      dhcp4: false
`)
	p := New(Options{})
	require.NoError(t, p.LoadHierarchy(root))
	def, ok := p.Table().Get("eth0")
	require.True(t, ok)
	assert.False(t, *def.DHCP4)
	assert.Equal(t, 1500, *def.MTU)
}

func TestLoadHierarchy_RestoresOnError(t *testing.T) {
	root := t.TempDir()
	writeDoc(t, tierDir(root, "etc"), "10-good.yaml", "network:\n  ethernets:\n    eth1: {}\n")
	writeDoc(t, tierDir(root, "etc"), "20-bad.yaml", "network:\n  ethernets:\n    eth2:\n      bogus: 1\n")

	p := New(Options{})
	require.NoError(t, p.Merge(newEthernet("eth0")))

	err := p.LoadHierarchy(root)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, filepath.Join(tierDir(root, "etc"), "20-bad.yaml"), pe.Path)
	assert.Equal(t, []string{"eth0"}, p.Table().IDs())
	assert.Empty(t, p.Sources())
}

func TestLoadHierarchy_UnreadableRoot(t *testing.T) {
	p := New(Options{})
	err := p.LoadHierarchy(filepath.Join(t.TempDir(), "missing"))
	var re *ReadError
	require.ErrorAs(t, err, &re)
}

func TestLoadHierarchy_EmptyRoot(t *testing.T) {
	p := New(Options{})
	require.NoError(t, p.LoadHierarchy(t.TempDir()))
	assert.Equal(t, 0, p.Len())
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("")
	require.NoError(t, err)
	assert.Equal(t, OrderBasename, o)
	o, err = ParseOrder("tier")
	require.NoError(t, err)
	assert.Equal(t, OrderTier, o)
	_, err = ParseOrder("alpha")
	assert.Error(t, err)
}
