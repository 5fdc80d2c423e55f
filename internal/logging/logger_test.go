package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Level:      LevelDebug,
		Output:     &buf,
		JSON:       true,
		TimeFormat: time.RFC3339,
	})

	t.Run("Levels", func(t *testing.T) {
		for _, log := range []func(string, ...any){logger.Debug, logger.Info, logger.Warn, logger.Error} {
			buf.Reset()
			log("level msg")
			if !strings.Contains(buf.String(), "level msg") {
				t.Errorf("missing message in %q", buf.String())
			}
		}
	})

	t.Run("DynamicLevel", func(t *testing.T) {
		logger.SetLevel(LevelError)
		if logger.Level() != LevelError {
			t.Error("SetLevel failed")
		}

		buf.Reset()
		logger.Info("should not appear")
		if buf.Len() > 0 {
			t.Error("Logged info message when level was Error")
		}

		logger.SetLevel(LevelDebug)
	})

	t.Run("WithComponent", func(t *testing.T) {
		buf.Reset()
		logger.WithComponent("parser").Info("msg")

		var rec map[string]any
		if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if rec["component"] != "parser" {
			t.Errorf("component = %v", rec["component"])
		}
	})
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	logger := New(cfg).WithComponent("generate")

	logger.Info("wrote definition", "id", "eth0", "path", "/run/with space")

	line := buf.String()
	want := regexp.MustCompile(fmt.Sprintf(
		`^\S+ netgen\[%d\]: \[info\] generate: wrote definition id=eth0 path="/run/with space"\n$`, os.Getpid()))
	if !want.MatchString(line) {
		t.Errorf("unexpected console line: %q", line)
	}

	buf.Reset()
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Errorf("debug line written at info level: %q", buf.String())
	}
}

func TestConsoleNestedComponent(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	New(cfg).WithComponent("session").WithComponent("nm").Warn("skipped")

	if !strings.Contains(buf.String(), "[warn] nm: skipped") {
		t.Errorf("innermost component should win: %q", buf.String())
	}
}

func TestPrefix(t *testing.T) {
	SetPrefix("netgen-generator")
	defer SetPrefix("netgen")

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	New(cfg).Info("hello")
	if !strings.Contains(buf.String(), "netgen-generator[") {
		t.Errorf("prefix not applied: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
		err  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.err {
			t.Errorf("ParseLevel(%q) err = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDefaultLogger(t *testing.T) {
	if Default() == nil {
		t.Fatal("Default logger is nil")
	}

	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.Output = &buf
	prev := Default()
	SetDefault(New(cfg))
	defer SetDefault(prev)

	Default().Debug("debug")
	Default().Info("info")
	Default().Warn("warn")
	Default().Error("error")
	WithComponent("comp").Info("comp msg")

	out := buf.String()
	if strings.Contains(out, "] debug") {
		t.Error("debug written at info level")
	}
	if !strings.Contains(out, "comp: comp msg") {
		t.Errorf("component line missing: %q", out)
	}
}

func TestKmsgWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kmsg")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatal(err)
	}

	w, err := OpenKmsg(path, "")
	if err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.Output = w
	cfg.Level = LevelDebug
	log := New(cfg)
	log.Error("boom")
	log.Info("fine")
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 records, got %q", data)
	}
	if !strings.HasPrefix(lines[0], "<27>netgen: ") {
		t.Errorf("error record priority: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "<30>netgen: ") {
		t.Errorf("info record priority: %q", lines[1])
	}

	if _, err := OpenKmsg(filepath.Join(t.TempDir(), "missing", "kmsg"), "x"); err == nil {
		t.Error("expected error for missing device")
	}
}
