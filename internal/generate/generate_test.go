package generate

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"grimm.is/netgen/internal/logging"
	"grimm.is/netgen/internal/metrics"
	"grimm.is/netgen/internal/netdef"
	"grimm.is/netgen/internal/parser"
	"grimm.is/netgen/internal/state"
)

// fakeWriter writes run/fake/fake-<id>.conf per definition and
// run/fake/fake-all.conf on finish.
type fakeWriter struct {
	backend netdef.Backend
	fail    string
	calls   []string
}

const fakeDir = "run/fake"

func (w *fakeWriter) Backend() netdef.Backend { return w.backend }

func (w *fakeWriter) Write(st *state.State, def *netdef.Definition, root string) ([]string, error) {
	w.calls = append(w.calls, def.ID)
	if def.ID == w.fail {
		return nil, errors.New("disk full")
	}
	rel := filepath.Join(fakeDir, "fake-"+def.ID+".conf")
	return []string{rel}, WriteFile(root, rel, []byte(def.ID+"\n"), 0o644)
}

func (w *fakeWriter) Finish(st *state.State, root string) ([]string, error) {
	rel := filepath.Join(fakeDir, "fake-all.conf")
	return []string{rel}, WriteFile(root, rel, []byte("all\n"), 0o644)
}

func (w *fakeWriter) Artifacts(root string) ([]string, error) {
	return ListFiles(root, fakeDir, "fake-")
}

func (w *fakeWriter) Owner(_ *state.State, rel string) (string, bool, bool) {
	name := filepath.Base(rel)
	if name == "fake-all.conf" {
		return "", true, true
	}
	if !strings.HasPrefix(name, "fake-") || !strings.HasSuffix(name, ".conf") {
		return "", false, false
	}
	return strings.TrimSuffix(strings.TrimPrefix(name, "fake-"), ".conf"), false, true
}

func (w *fakeWriter) Units() []Unit {
	return []Unit{{WantedBy: "multi-user.target", Name: "fake.service", Target: "/lib/systemd/system/fake.service"}}
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Backend() netdef.Backend { return netdef.BackendNetworkManager }
func (m *mockWriter) Write(st *state.State, def *netdef.Definition, root string) ([]string, error) {
	args := m.Called(st, def, root)
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockWriter) Finish(st *state.State, root string) ([]string, error) { return nil, nil }
func (m *mockWriter) Artifacts(root string) ([]string, error)                 { return nil, nil }
func (m *mockWriter) Owner(*state.State, string) (string, bool, bool)          { return "", false, false }
func (m *mockWriter) Units() []Unit                                           { return nil }

func quietLogger() *logging.Logger {
	cfg := logging.DefaultConfig()
	cfg.Output = &strings.Builder{}
	return logging.New(cfg)
}

func importDefs(t *testing.T, defs ...*netdef.Definition) *state.State {
	t.Helper()
	p := parser.New(parser.Options{Logger: quietLogger()})
	for _, d := range defs {
		require.NoError(t, p.Merge(d))
	}
	st, err := state.Import(p, state.WithLogger(quietLogger()))
	require.NoError(t, err)
	return st
}

func withBackend(id string, b netdef.Backend) *netdef.Definition {
	d := netdef.New(id, netdef.KindEthernet)
	d.Backend = b
	return d
}

func TestDispatcher_NotApplicableSkipsWriter(t *testing.T) {
	st := importDefs(t, withBackend("eth0", netdef.BackendNetworkd))
	def, _ := st.Get("eth0")

	w := new(mockWriter)
	d := NewDispatcher(quietLogger(), metrics.New(), w)

	outcome, err := d.Write(st, def, netdef.BackendNetworkManager, t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NotApplicable, outcome)
	w.AssertNotCalled(t, "Write", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, d.Count(netdef.BackendNetworkManager))
}

func TestDispatcher_WritesApplicable(t *testing.T) {
	st := importDefs(t, withBackend("eth0", netdef.BackendNetworkManager))
	def, _ := st.Get("eth0")
	root := t.TempDir()

	w := new(mockWriter)
	w.On("Write", st, def, root).Return([]string{"run/nm/eth0"}, nil).Once()
	d := NewDispatcher(quietLogger(), metrics.New(), w)

	outcome, err := d.Write(st, def, netdef.BackendNetworkManager, root)
	require.NoError(t, err)
	assert.Equal(t, Written, outcome)
	assert.Equal(t, 1, d.Count(netdef.BackendNetworkManager))
	assert.Equal(t, []string{"run/nm/eth0"}, d.WrittenFiles(netdef.BackendNetworkManager))
	w.AssertExpectations(t)
}

func TestDispatcher_WriteError(t *testing.T) {
	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet), netdef.New("eth1", netdef.KindEthernet), netdef.New("eth2", netdef.KindEthernet))
	w := &fakeWriter{backend: netdef.BackendNetworkd, fail: "eth1"}
	d := NewDispatcher(quietLogger(), metrics.New(), w)

	n, err := d.WriteAll(st, netdef.BackendNetworkd, t.TempDir())
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, "eth1", we.ID)
	assert.Equal(t, netdef.BackendNetworkd, we.Backend)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"eth0", "eth1"}, w.calls, "must stop at the first failure")
}

func TestDispatcher_MissingWriter(t *testing.T) {
	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet))
	def, _ := st.Get("eth0")
	d := NewDispatcher(quietLogger(), metrics.New())
	_, err := d.Write(st, def, netdef.BackendNetworkd, t.TempDir())
	assert.ErrorIs(t, err, ErrNoWriter)
}

func TestApplies_VirtualSwitch(t *testing.T) {
	br := netdef.New("ovs0", netdef.KindBridge)
	br.OpenVSwitch = netdef.MapValue(nil)
	br.Interfaces = []string{"eth0"}
	st := importDefs(t, br, netdef.New("eth0", netdef.KindEthernet))

	eth, _ := st.Get("eth0")
	assert.True(t, Applies(eth, netdef.BackendNetworkd))
	assert.True(t, Applies(eth, netdef.BackendOpenVSwitch))
	assert.False(t, Applies(eth, netdef.BackendNetworkManager))
	assert.False(t, Applies(eth, netdef.BackendNone))
}

func TestLifecycle_FinishOnce(t *testing.T) {
	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet))
	w := &fakeWriter{backend: netdef.BackendNetworkd}
	d := NewDispatcher(quietLogger(), metrics.New(), w)
	lc := NewLifecycle(d)
	root := t.TempDir()

	require.NoError(t, lc.Finish(st, netdef.BackendNetworkd, root))
	assert.NoFileExists(t, filepath.Join(root, fakeDir, "fake-all.conf"), "finish without writes is a no-op")

	_, err := d.WriteAll(st, netdef.BackendNetworkd, root)
	require.NoError(t, err)
	require.NoError(t, lc.Finish(st, netdef.BackendNetworkd, root))
	assert.FileExists(t, filepath.Join(root, fakeDir, "fake-all.conf"))

	require.NoError(t, os.Remove(filepath.Join(root, fakeDir, "fake-all.conf")))
	require.NoError(t, lc.Finish(st, netdef.BackendNetworkd, root))
	assert.NoFileExists(t, filepath.Join(root, fakeDir, "fake-all.conf"), "second finish is a no-op")
}

func TestLifecycle_EnableIdempotent(t *testing.T) {
	w := &fakeWriter{backend: netdef.BackendNetworkd}
	lc := NewLifecycle(NewDispatcher(quietLogger(), metrics.New(), w))
	gen := t.TempDir()

	require.NoError(t, lc.Enable(netdef.BackendNetworkd, gen))
	require.NoError(t, lc.Enable(netdef.BackendNetworkd, gen))

	target, err := os.Readlink(filepath.Join(gen, "multi-user.target.wants", "fake.service"))
	require.NoError(t, err)
	assert.Equal(t, "/lib/systemd/system/fake.service", target)
}

func TestLifecycle_EnableError(t *testing.T) {
	w := &fakeWriter{backend: netdef.BackendNetworkd}
	lc := NewLifecycle(NewDispatcher(quietLogger(), metrics.New(), w))

	blocker := filepath.Join(t.TempDir(), "gen")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	err := lc.Enable(netdef.BackendNetworkd, blocker)
	var ee *EnableError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, netdef.BackendNetworkd, ee.Backend)
}

func TestLifecycle_Cleanup(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"fake-eth0.conf", "fake-gone.conf", "fake-eth1.conf", "fake-all.conf", "other.conf"} {
		require.NoError(t, WriteFile(root, filepath.Join(fakeDir, name), []byte("x"), 0o644))
	}

	st := importDefs(t,
		netdef.New("eth0", netdef.KindEthernet),
		withBackend("eth1", netdef.BackendNetworkManager),
	)
	w := &fakeWriter{backend: netdef.BackendNetworkd}
	lc := NewLifecycle(NewDispatcher(quietLogger(), metrics.New(), w))

	removed, err := lc.Cleanup(st, netdef.BackendNetworkd, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(fakeDir, "fake-gone.conf"),
		filepath.Join(fakeDir, "fake-eth1.conf"),
	}, removed)
	assert.FileExists(t, filepath.Join(root, fakeDir, "fake-eth0.conf"))
	assert.FileExists(t, filepath.Join(root, fakeDir, "fake-all.conf"), "aggregate stays while definitions are routed")
	assert.FileExists(t, filepath.Join(root, fakeDir, "other.conf"))

	empty := importDefs(t, withBackend("eth1", netdef.BackendNetworkManager))
	removed, err = lc.Cleanup(empty, netdef.BackendNetworkd, root)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		filepath.Join(fakeDir, "fake-eth0.conf"),
		filepath.Join(fakeDir, "fake-all.conf"),
	}, removed)
}

// ambiguousWriter attributes every per-definition file to a definition that
// does not exist, as a writer may when file names collide.
type ambiguousWriter struct {
	*fakeWriter
}

func (w ambiguousWriter) Owner(st *state.State, rel string) (string, bool, bool) {
	id, aggregate, ok := w.fakeWriter.Owner(st, rel)
	if ok && !aggregate {
		id = "ghost"
	}
	return id, aggregate, ok
}

func TestLifecycle_CleanupKeepsFilesWrittenThisRun(t *testing.T) {
	root := t.TempDir()
	old := filepath.Join(fakeDir, "fake-old.conf")
	require.NoError(t, WriteFile(root, old, []byte("x"), 0o644))

	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet))
	d := NewDispatcher(quietLogger(), metrics.New(), ambiguousWriter{&fakeWriter{backend: netdef.BackendNetworkd}})
	lc := NewLifecycle(d)

	_, err := d.WriteAll(st, netdef.BackendNetworkd, root)
	require.NoError(t, err)
	removed, err := lc.Cleanup(st, netdef.BackendNetworkd, root)
	require.NoError(t, err)

	assert.Equal(t, []string{old}, removed)
	assert.FileExists(t, filepath.Join(root, fakeDir, "fake-eth0.conf"))
}

func TestRun_EndToEnd(t *testing.T) {
	root := t.TempDir()
	gen := filepath.Join(root, "generator")
	require.NoError(t, WriteFile(root, filepath.Join(fakeDir, "fake-old.conf"), []byte("x"), 0o644))

	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet), withBackend("wlan0", netdef.BackendNetworkManager))
	nd := &fakeWriter{backend: netdef.BackendNetworkd}
	nm := new(mockWriter)
	wlan, _ := st.Get("wlan0")
	nm.On("Write", st, wlan, root).Return([]string{}, nil)

	report, err := Run(st, NewDispatcher(quietLogger(), metrics.New(), nd, nm), Options{Root: root, GeneratorDir: gen})
	require.NoError(t, err)
	require.Len(t, report.Backends, 2)

	networkd := report.Backends[0]
	assert.Equal(t, netdef.BackendNetworkd, networkd.Backend)
	assert.Equal(t, 1, networkd.Definitions)
	assert.Equal(t, []string{filepath.Join(fakeDir, "fake-all.conf"), filepath.Join(fakeDir, "fake-eth0.conf")}, networkd.Written)
	assert.Equal(t, []string{filepath.Join(fakeDir, "fake-old.conf")}, networkd.Removed)
	assert.True(t, networkd.Enabled)
	assert.Equal(t, 2, report.Written())

	assert.FileExists(t, filepath.Join(gen, "multi-user.target.wants", "fake.service"))
	nm.AssertExpectations(t)
}

func TestRun_StopsOnWriteError(t *testing.T) {
	st := importDefs(t, netdef.New("eth0", netdef.KindEthernet))
	nd := &fakeWriter{backend: netdef.BackendNetworkd, fail: "eth0"}
	report, err := Run(st, NewDispatcher(quietLogger(), metrics.New(), nd), Options{Root: t.TempDir()})
	var we *WriteError
	require.ErrorAs(t, err, &we)
	require.Len(t, report.Backends, 1)
	assert.False(t, report.Backends[0].Enabled)
}
