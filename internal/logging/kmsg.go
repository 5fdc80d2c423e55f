package logging

import (
	"bytes"
	"fmt"
	"os"
	"sync"
)

// KmsgPath is where generators log when they run before the journal.
const KmsgPath = "/dev/kmsg"

// KmsgWriter writes each line as a kernel log record with an RFC 3164
// priority prefix: <facility*8+severity>tag: line.
type KmsgWriter struct {
	mu       sync.Mutex
	f        *os.File
	tag      string
	facility int
}

// OpenKmsg opens path for writing. facility 3 is LOG_DAEMON.
func OpenKmsg(path, tag string) (*KmsgWriter, error) {
	if tag == "" {
		tag = "netgen"
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &KmsgWriter{f: f, tag: tag, facility: 3}, nil
}

// Write implements io.Writer. Severity follows the console level marker.
func (w *KmsgWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, line := range bytes.Split(bytes.TrimRight(p, "\n"), []byte{'\n'}) {
		msg := fmt.Sprintf("<%d>%s: %s\n", w.facility*8+severity(line), w.tag, line)
		if _, err := w.f.Write([]byte(msg)); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

// Close closes the underlying file.
func (w *KmsgWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}

func severity(line []byte) int {
	switch {
	case bytes.Contains(line, []byte("[error]")):
		return 3
	case bytes.Contains(line, []byte("[warn]")):
		return 4
	case bytes.Contains(line, []byte("[debug]")):
		return 7
	}
	return 6
}
