package session

import (
	"sync"

	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/netdef"
)

// The functions below keep the old flat call surface working on top of a
// process-wide default session. New code should hold its own Session.

var (
	defaultOnce    sync.Once
	defaultSession *Session
)

// Default returns the process-wide session, creating it on first use.
func Default() *Session {
	defaultOnce.Do(func() {
		defaultSession = New(Options{})
	})
	return defaultSession
}

// ParseYAML merges one document into the default session.
func ParseYAML(path string) error {
	return Default().LoadFile(path)
}

// ProcessYAMLHierarchy merges every document under root.
func ProcessYAMLHierarchy(root string) error {
	return Default().LoadHierarchy(root)
}

// FinishParse imports everything accumulated so far.
func FinishParse() error {
	_, err := Default().Import()
	return err
}

// ClearNetdefs drops all definitions and returns how many there were.
func ClearNetdefs() int {
	return Default().Reset()
}

// GlobalBackend returns the backend definitions default to.
func GlobalBackend() netdef.Backend {
	return Default().State().Backend()
}

func write(b netdef.Backend, id, root string) (bool, error) {
	outcome, err := Default().Write(b, id, root)
	return outcome == generate.Written, err
}

// finish panics on error; the flat API has no error return for it.
func finish(b netdef.Backend, root string) {
	if err := Default().Finish(b, root); err != nil {
		panic(err)
	}
}

// WriteNetworkdConf renders id for networkd. It reports false when networkd
// does not consume the definition.
func WriteNetworkdConf(id, root string) (bool, error) {
	return write(netdef.BackendNetworkd, id, root)
}

// WriteNMConf renders id for NetworkManager.
func WriteNMConf(id, root string) (bool, error) {
	return write(netdef.BackendNetworkManager, id, root)
}

// WriteNMConfFinish writes NetworkManager's aggregate configuration.
func WriteNMConfFinish(root string) {
	finish(netdef.BackendNetworkManager, root)
}

// WriteOVSConf renders id for Open vSwitch.
func WriteOVSConf(id, root string) (bool, error) {
	return write(netdef.BackendOpenVSwitch, id, root)
}

// WriteOVSConfFinish writes the Open vSwitch aggregate unit.
func WriteOVSConfFinish(root string) {
	finish(netdef.BackendOpenVSwitch, root)
}

// CleanupNetworkdConf removes stale networkd artifacts.
func CleanupNetworkdConf(root string) ([]string, error) {
	return Default().Cleanup(netdef.BackendNetworkd, root)
}

// CleanupNMConf removes stale NetworkManager artifacts.
func CleanupNMConf(root string) ([]string, error) {
	return Default().Cleanup(netdef.BackendNetworkManager, root)
}

// CleanupOVSConf removes stale Open vSwitch artifacts.
func CleanupOVSConf(root string) ([]string, error) {
	return Default().Cleanup(netdef.BackendOpenVSwitch, root)
}

// EnableNetworkd links the networkd units into generatorDir.
func EnableNetworkd(generatorDir string) error {
	return Default().Enable(netdef.BackendNetworkd, generatorDir)
}

// WriteNetplanConf emits one definition as a document under root.
func WriteNetplanConf(id, root string) (string, error) {
	return Default().Emit(id, root, "")
}

// WriteNetplanConfFull emits the whole state as root/etc/netgen/<hint>.yaml.
// Documents parsed since the last FinishParse are imported first.
func WriteNetplanConfFull(hint, root string) (string, error) {
	s := Default()
	if s.Pending() > 0 {
		if _, err := s.Import(); err != nil {
			return "", err
		}
	}
	return s.Emit("", root, hint)
}

// FilenameByID loads the hierarchy under root into a private session and
// reports the document that declared id. The default session is untouched.
func FilenameByID(id, root string) (string, bool, error) {
	s := New(Options{Root: root})
	if err := s.LoadHierarchy(root); err != nil {
		return "", false, err
	}
	if _, err := s.Import(); err != nil {
		return "", false, err
	}
	name, ok := s.FilenameByID(id)
	return name, ok, nil
}
