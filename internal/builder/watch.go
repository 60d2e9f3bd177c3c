package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after a change before rebuilding.
const DefaultDebounce = 300 * time.Millisecond

// Watch rebuilds whenever files below dir change, until ctx is done.
// Bursts of events within debounce trigger a single build.
func (b *Builder) Watch(ctx context.Context, dir string, debounce time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer watcher.Close()

	if err := b.addDirsRecursive(watcher, dir); err != nil {
		return err
	}

	rebuild, trigger := debouncer(debounce)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-rebuild:
				b.log.Info().Msg("Change detected; rebuilding sitemap")
				_, _ = b.Build(ctx)
			}
		}
	}()

	b.log.Info().Str("dir", dir).Msg("Watching for changes")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ignoreEvent(ev.Name) {
				continue
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					_ = b.addDirsRecursive(watcher, ev.Name)
				}
			}
			b.log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("File change detected")
			trigger()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			b.log.Warn().Err(err).Msg("Watcher error")
		}
	}
}

func debouncer(wait time.Duration) (<-chan struct{}, func()) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	ch := make(chan struct{}, 1)

	trigger := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(wait, func() {
			select {
			case ch <- struct{}{}:
			default:
			}
		})
	}
	return ch, trigger
}

func (b *Builder) addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			b.log.Warn().Err(err).Str("dir", path).Msg("Watch add failed")
		}
		return nil
	})
}

// ignoreEvent skips hidden, swap and backup files.
func ignoreEvent(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") ||
		strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".tmp")
}
