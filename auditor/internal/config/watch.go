package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 100 * time.Millisecond

// Watch reloads the config file at path whenever it, or a *.yaml bundle in
// the configured locales_dir, changes and hands the result to onChange. It
// blocks until ctx is cancelled.
//
// The file's parent directory is watched rather than the file itself so
// atomic rename-saves keep being seen. A reload that fails to parse or
// validate is logged and dropped; onChange only ever sees valid configs.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	w := &configWatch{watcher: watcher, path: abs}
	w.setLocalesDir(cfg.Auditor.LocalesDir)

	slog.Info("config: watching for changes", "path", abs, "locales_dir", w.locales)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(reloadDebounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(reloadDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			next, err := Load(path)
			if err != nil {
				slog.Error("config: reload failed, keeping previous config",
					"path", abs, "err", err)
				continue
			}
			w.setLocalesDir(next.Auditor.LocalesDir)
			slog.Info("config: reloaded", "path", abs)
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

type configWatch struct {
	watcher *fsnotify.Watcher
	path    string // absolute config file path
	locales string // absolute locales_dir currently watched, "" if none
}

func (w *configWatch) relevant(ev fsnotify.Event) bool {
	name := filepath.Clean(ev.Name)
	if name == w.path {
		// Rename or Remove of the old inode is followed by a Create.
		return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
	}
	if w.locales != "" && filepath.Dir(name) == w.locales && isBundle(name) {
		return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
			ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
	}
	return false
}

// setLocalesDir moves the locales watch to dir. A directory that cannot be
// watched is logged and left unwatched; the config file watch is unaffected.
func (w *configWatch) setLocalesDir(dir string) {
	abs := ""
	if dir != "" {
		if a, err := filepath.Abs(dir); err == nil {
			abs = a
		}
	}
	if abs == w.locales {
		return
	}
	if w.locales != "" && w.locales != filepath.Dir(w.path) {
		_ = w.watcher.Remove(w.locales)
	}
	w.locales = ""
	if abs == "" {
		return
	}
	if abs != filepath.Dir(w.path) {
		if err := w.watcher.Add(abs); err != nil {
			slog.Warn("config: cannot watch locales_dir", "dir", abs, "err", err)
			return
		}
	}
	w.locales = abs
}

func isBundle(name string) bool {
	return strings.HasSuffix(name, ".yaml")
}
