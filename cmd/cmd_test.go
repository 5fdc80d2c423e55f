package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"grimm.is/netgen/internal/config"
	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/i18n"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/session"
	"grimm.is/netgen/internal/state"
)

func TestMain(m *testing.M) {
	Printer = i18n.NewPrinter(language.English)
	os.Exit(m.Run())
}

const lanDoc = `network:
  version: 2
  ethernets:
    eth0:
      dhcp4: true
    eth1:
      addresses: [10.0.0.1/24]
`

type fixture struct {
	src, out string
	doc      string
	opts     Options
}

// newFixture writes one document and a config pointing the hierarchy at it
// and generation at a separate root.
func newFixture(t *testing.T, doc string) *fixture {
	t.Helper()
	t.Setenv("NETGEN_ROOT_DIR", "")
	t.Setenv("NETGEN_GENERATOR_DIR", "")
	t.Setenv("NETGEN_LOG_LEVEL", "")

	f := &fixture{src: t.TempDir(), out: t.TempDir()}
	dir := filepath.Join(f.src, "etc", "netgen")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	f.doc = filepath.Join(dir, "01-lan.yaml")
	require.NoError(t, os.WriteFile(f.doc, []byte(doc), 0o600))

	cfgPath := filepath.Join(t.TempDir(), "netgen.hcl")
	hcl := fmt.Sprintf("root_dir = %q\n\nhierarchy {\n  root = %q\n}\n\nmetrics {\n  textfile = %q\n}\n",
		f.out, f.src, filepath.Join(f.out, "netgen.prom"))
	require.NoError(t, os.WriteFile(cfgPath, []byte(hcl), 0o644))

	f.opts = Options{ConfigFile: cfgPath, LogOutput: io.Discard}
	return f
}

func TestRunGenerate(t *testing.T) {
	f := newFixture(t, lanDoc)
	gen := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, RunGenerate(&out, GenerateOptions{Options: f.opts, GeneratorDir: gen}))

	assert.Equal(t, "networkd: 2 definitions, 2 files written, 0 removed\n"+
		"networkd: enabled\n"+
		"NetworkManager: 0 definitions, 0 files written, 0 removed\n"+
		"OpenVSwitch: 0 definitions, 0 files written, 0 removed\n", out.String())

	assert.FileExists(t, filepath.Join(f.out, "run/systemd/network/10-netgen-eth0.network"))
	assert.FileExists(t, filepath.Join(f.out, "netgen.prom"))
	_, err := os.Lstat(filepath.Join(gen, "multi-user.target.wants", "systemd-networkd.service"))
	assert.NoError(t, err)
}

func TestRunGenerate_RootOverride(t *testing.T) {
	f := newFixture(t, lanDoc)
	other := t.TempDir()
	f.opts.RootDir = other

	require.NoError(t, RunGenerate(io.Discard, GenerateOptions{Options: f.opts}))
	assert.FileExists(t, filepath.Join(other, "run/systemd/network/10-netgen-eth1.network"))
	assert.NoFileExists(t, filepath.Join(f.out, "run/systemd/network/10-netgen-eth1.network"))
}

func TestRunGenerate_ParseError(t *testing.T) {
	f := newFixture(t, "network:\n  version: 2\n  ethernets: [oops]\n")
	err := RunGenerate(io.Discard, GenerateOptions{Options: f.opts})
	require.Error(t, err)
	assert.Equal(t, ExitParse, ExitCode(err))
}

func TestRunGet(t *testing.T) {
	f := newFixture(t, lanDoc)

	var out bytes.Buffer
	require.NoError(t, RunGet(&out, f.opts, ""))
	assert.Contains(t, out.String(), "ethernets:\n")
	assert.Contains(t, out.String(), "eth1:")

	out.Reset()
	require.NoError(t, RunGet(&out, f.opts, "eth0"))
	assert.NotContains(t, out.String(), "eth1")

	err := RunGet(io.Discard, f.opts, "nope")
	assert.True(t, errors.Is(err, session.ErrUnknownDefinition))
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestRunEmitAndDelete(t *testing.T) {
	f := newFixture(t, lanDoc)

	var out bytes.Buffer
	require.NoError(t, RunEmit(&out, f.opts, "eth1", ""))
	assert.Equal(t, "wrote etc/netgen/10-netgen-eth1.yaml\n", out.String())
	assert.FileExists(t, filepath.Join(f.out, "etc/netgen/10-netgen-eth1.yaml"))

	out.Reset()
	require.NoError(t, RunDelete(&out, f.opts, "eth1"))
	assert.Equal(t, "deleted eth1\n", out.String())

	data, err := os.ReadFile(f.doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "eth1")

	assert.Equal(t, ExitValidation, ExitCode(RunDelete(io.Discard, f.opts, "eth1")))
}

func TestRunCheck(t *testing.T) {
	f := newFixture(t, lanDoc+`  vlans:
    vlan5:
      id: 5
      link: eth9
`)

	var out bytes.Buffer
	require.NoError(t, RunCheck(&out, f.opts, true))
	s := out.String()
	assert.Contains(t, s, "vlan5: unresolved reference to eth9\n")
	assert.Regexp(t, `ID\s+KIND\s+BACKEND\s+FILE`, s)
	assert.Contains(t, s, f.doc)
	assert.Contains(t, s, "3 definitions OK\n")
}

func TestRunDiff(t *testing.T) {
	f := newFixture(t, lanDoc)

	var out bytes.Buffer
	err := RunDiff(&out, f.opts)
	require.ErrorIs(t, err, ErrDiffers)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, out.String(), "+++ generated/run/systemd/network/10-netgen-eth0.network")

	require.NoError(t, RunGenerate(io.Discard, GenerateOptions{Options: f.opts}))

	out.Reset()
	require.NoError(t, RunDiff(&out, f.opts))
	assert.Equal(t, "no changes\n", out.String())

	// hand edit of an installed artifact
	path := filepath.Join(f.out, "run/systemd/network/10-netgen-eth1.network")
	require.NoError(t, os.WriteFile(path, []byte("[Match]\nName=eth1\n"), 0o644))
	out.Reset()
	require.ErrorIs(t, RunDiff(&out, f.opts), ErrDiffers)
	assert.Contains(t, out.String(), "--- installed/run/systemd/network/10-netgen-eth1.network")
}

func TestRunWatch(t *testing.T) {
	f := newFixture(t, lanDoc)

	runs := make(chan error, 4)
	ctx, cancel := context.WithCancel(context.Background())
	var out bytes.Buffer
	var wg sync.WaitGroup
	wg.Add(1)
	var watchErr error
	go func() {
		defer wg.Done()
		watchErr = RunWatch(ctx, &out, WatchOptions{
			GenerateOptions: GenerateOptions{Options: f.opts},
			Debounce:        50 * time.Millisecond,
			OnRun:           func(_ *generate.Report, err error) { runs <- err },
		})
	}()

	select {
	case err := <-runs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("initial generation did not run")
	}
	assert.NoFileExists(t, filepath.Join(f.out, "run/systemd/network/10-netgen-eth2.network"))

	extra := filepath.Join(f.src, "etc", "netgen", "02-extra.yaml")
	require.NoError(t, os.WriteFile(extra, []byte("network:\n  version: 2\n  ethernets:\n    eth2: {}\n"), 0o600))

	select {
	case err := <-runs:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("change did not trigger regeneration")
	}
	cancel()
	wg.Wait()

	require.NoError(t, watchErr)
	assert.FileExists(t, filepath.Join(f.out, "run/systemd/network/10-netgen-eth2.network"))
	assert.Contains(t, out.String(), "regenerated after")
}

func TestRunWatch_NoDirectories(t *testing.T) {
	f := newFixture(t, lanDoc)
	require.NoError(t, os.RemoveAll(filepath.Join(f.src, "etc")))

	err := RunWatch(context.Background(), io.Discard, WatchOptions{GenerateOptions: GenerateOptions{Options: f.opts}})
	assert.ErrorContains(t, err, "no hierarchy directories")
}

func TestRunInfo(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, RunInfo(&out))
	assert.Contains(t, out.String(), "backends: networkd, NetworkManager, OpenVSwitch\n")
	assert.Contains(t, out.String(), "ethernets")
}

func TestRunGenerator_Usage(t *testing.T) {
	err := RunGenerator("", []string{"a", "b"})
	assert.ErrorContains(t, err, "usage")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"plain", errors.New("boom"), ExitFailure},
		{"read", &parser.ReadError{Path: "x", Err: os.ErrNotExist}, ExitParse},
		{"parse", fmt.Errorf("load: %w", &parser.ParseError{Path: "x", Err: errors.New("bad")}), ExitParse},
		{"conflict", &parser.ConflictError{Conflict: &netdef.KindConflict{ID: "eth0"}}, ExitValidation},
		{"state", state.ValidationErrors{{ID: "eth0"}}, ExitValidation},
		{"config", config.ValidationErrors{{Field: "log.level"}}, ExitValidation},
		{"write", &generate.WriteError{Err: errors.New("disk")}, ExitWrite},
		{"enable", fmt.Errorf("run: %w", &generate.EnableError{Err: errors.New("eexist")}), ExitWrite},
		{"differs", ErrDiffers, ExitFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), tt.name)
	}
}
