package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"grimm.is/netgen/internal/generate"
	"grimm.is/netgen/internal/i18n"
	"grimm.is/netgen/internal/parser"
)

// DefaultDebounce is how long watch waits for a burst of changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// WatchOptions configures RunWatch.
type WatchOptions struct {
	GenerateOptions
	Debounce time.Duration
	// OnRun is called after every generation, including the initial one.
	OnRun func(*generate.Report, error)
}

// RunWatch generates once, then regenerates whenever a document in the
// hierarchy changes, until ctx is cancelled. A failed regeneration is
// logged and the previous output stays in place.
func RunWatch(ctx context.Context, w io.Writer, opts WatchOptions) error {
	rt, err := load(opts.Options)
	if err != nil {
		return err
	}
	defer rt.close()
	log := rt.log.WithComponent("watch")

	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	genDir := opts.GeneratorDir
	if genDir == "" {
		genDir = rt.cfg.GeneratorDir
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dirs := 0
	for _, tier := range parser.Tiers {
		dir := filepath.Join(rt.cfg.HierarchyRoot(), tier, rt.cfg.Hierarchy.Subdir)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		log.Debug("watching", "dir", dir)
		dirs++
	}
	if dirs == 0 {
		return fmt.Errorf("no hierarchy directories under %s", rt.cfg.HierarchyRoot())
	}

	run := func() {
		report, err := rt.generate(rt.cfg.RootDir, genDir)
		if err != nil {
			log.Error("generation failed", "error", err)
		} else if mErr := rt.writeMetrics(); mErr != nil {
			log.Warn("metrics not written", "error", mErr)
		}
		if opts.OnRun != nil {
			opts.OnRun(report, err)
		}
	}
	run()

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := 0

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if !strings.HasSuffix(ev.Name, ".yaml") || ev.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("change", "path", ev.Name, "op", ev.Op.String())
			pending++
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			log.Warn("watch error", "error", err)

		case <-timer.C:
			Printer.Fprintf(w, i18n.MsgRegenerated, pending)
			pending = 0
			run()
		}
	}
}
