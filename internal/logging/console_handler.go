package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ConsoleHandler is a slog.Handler that writes one line per record:
//
//	2026-01-02T15:04:05Z netgen[1234]: [info] parser: loaded document path=/etc/netgen/01.yaml
type ConsoleHandler struct {
	opts       slog.HandlerOptions
	out        io.Writer
	timeFormat string
	mu         *sync.Mutex
	attrs      []slog.Attr
}

var (
	processPrefix   = "netgen"
	processPrefixMu sync.RWMutex
)

// SetPrefix sets the process name written before the pid.
func SetPrefix(prefix string) {
	processPrefixMu.Lock()
	defer processPrefixMu.Unlock()
	processPrefix = prefix
}

// GetPrefix returns the current process name prefix.
func GetPrefix() string {
	processPrefixMu.RLock()
	defer processPrefixMu.RUnlock()
	return processPrefix
}

// NewConsoleHandler creates a new ConsoleHandler. An empty timeFormat
// means RFC 3339.
func NewConsoleHandler(out io.Writer, opts *slog.HandlerOptions, timeFormat string) *ConsoleHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}
	return &ConsoleHandler{
		out:        out,
		opts:       *opts,
		timeFormat: timeFormat,
		mu:         &sync.Mutex{},
	}
}

// Enabled reports whether the handler is enabled for this level.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	threshold := slog.LevelInfo
	if h.opts.Level != nil {
		threshold = h.opts.Level.Level()
	}
	return level >= threshold
}

// Handle handles the Record.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 512)

	t := r.Time
	if t.IsZero() {
		t = time.Now()
	}
	buf = append(buf, t.Format(h.timeFormat)...)
	buf = append(buf, ' ')

	procName := strings.ToLower(GetPrefix())
	if procName == "" {
		procName = "netgen"
	}
	buf = append(buf, fmt.Sprintf("%s[%d]: ", procName, os.Getpid())...)

	buf = append(buf, '[')
	buf = append(buf, strings.ToLower(r.Level.String())...)
	buf = append(buf, "] "...)

	// the innermost component wins
	component := ""
	for _, a := range h.attrs {
		if a.Key == "component" {
			component = strings.ToLower(a.Value.String())
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = strings.ToLower(a.Value.String())
			return false
		}
		return true
	})
	if component != "" {
		buf = append(buf, component...)
		buf = append(buf, ": "...)
	}

	buf = append(buf, r.Message...)

	for _, a := range h.attrs {
		if a.Key == "component" {
			continue
		}
		buf = append(buf, ' ')
		appendAttr(&buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			return true
		}
		buf = append(buf, ' ')
		appendAttr(&buf, a)
		return true
	})

	buf = append(buf, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf)
	return err
}

func appendAttr(buf *[]byte, a slog.Attr) {
	*buf = append(*buf, a.Key...)
	*buf = append(*buf, '=')
	val := a.Value.Resolve().String()
	if val == "" || strings.ContainsAny(val, " \t\n\"=") {
		*buf = strconv.AppendQuote(*buf, val)
		return
	}
	*buf = append(*buf, val...)
}

// WithAttrs returns a new handler with the given attributes.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &ConsoleHandler{
		opts:       h.opts,
		out:        h.out,
		timeFormat: h.timeFormat,
		mu:         h.mu,
		attrs:      merged,
	}
}

// WithGroup is a no-op; console output is flat.
func (h *ConsoleHandler) WithGroup(string) slog.Handler {
	return h
}
