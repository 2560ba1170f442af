package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 100 * time.Millisecond

// watchScript runs the script at path once and again after every change to it, until ctx
// ends or CTRL+C arrives between runs. A CTRL+C during a run only interrupts that run.
// Errors from individual runs are reported and watching goes on.
func watchScript(ctx context.Context, cc *CommandContext, path string, run func(ctx context.Context, src []byte) error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve script path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Editors often replace the file instead of writing it, so watch its directory.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	runOnce := func() {
		cc.Evaluator.Reset()
		src, err := readScript(nil, abs)
		if err == nil {
			err = run(ctx, src)
		}
		if err != nil {
			cc.Renderer.Error(err)
		}
		cc.Renderer.Muted("Watching %s for changes (CTRL+C to stop)", path)
	}
	runOnce()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sigs:
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			cc.Logger.Debug("script changed", "path", abs)
			// The run forwards its own interrupts.
			signal.Stop(sigs)
			runOnce()
			signal.Notify(sigs, os.Interrupt)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			cc.Logger.Warn("watcher error", "error", err)
		}
	}
}
