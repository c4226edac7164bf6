package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// startWatch runs Watch in the background and returns the delivered configs.
func startWatch(t *testing.T, path string) <-chan *Config {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c })
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Watch returned %v", err)
		}
	})
	return got
}

// waitFor repeats mutate until a delivered config satisfies ok.
func waitFor(t *testing.T, got <-chan *Config, mutate func(), ok func(*Config) bool) *Config {
	t.Helper()
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(150 * time.Millisecond)
	defer tick.Stop()
	mutate()
	for {
		select {
		case c := <-got:
			if ok(c) {
				return c
			}
		case <-tick.C:
			mutate()
		case <-deadline:
			t.Fatal("timed out waiting for reload")
			return nil
		}
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "auditor:\n  locale: en-US\n")

	got := startWatch(t, path)
	c := waitFor(t, got,
		func() { writeFile(t, path, "auditor:\n  locale: de\n") },
		func(c *Config) bool { return c.Auditor.Locale == "de" })
	if c.Auditor.Locale != "de" {
		t.Errorf("reloaded locale: got %q, want de", c.Auditor.Locale)
	}
}

func TestWatch_AtomicRenameSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "auditor:\n  locale: en-US\n")

	got := startWatch(t, path)
	waitFor(t, got, func() {
		// Editors write a sibling temp file and rename it over the target.
		tmp := filepath.Join(dir, ".config.yaml.swp")
		writeFile(t, tmp, "auditor:\n  locale: fr\n")
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
	}, func(c *Config) bool { return c.Auditor.Locale == "fr" })

	// A second rename-save must still be seen after the inode changed.
	waitFor(t, got, func() {
		tmp := filepath.Join(dir, ".config.yaml.swp")
		writeFile(t, tmp, "auditor:\n  locale: es\n")
		if err := os.Rename(tmp, path); err != nil {
			t.Fatal(err)
		}
	}, func(c *Config) bool { return c.Auditor.Locale == "es" })
}

func TestWatch_LocalesDirChange(t *testing.T) {
	dir := t.TempDir()
	locales := filepath.Join(dir, "locales")
	if err := os.Mkdir(locales, 0o700); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.yaml")
	writeFile(t, path, "auditor:\n  locale: en-US\n  locales_dir: "+locales+"\n")

	got := startWatch(t, path)
	bundle := filepath.Join(locales, "pt.yaml")
	c := waitFor(t, got,
		func() { writeFile(t, bundle, "locale: pt\nmessages: {}\n") },
		func(*Config) bool { return true })
	if c.Auditor.LocalesDir != locales {
		t.Errorf("locales_dir: got %q, want %q", c.Auditor.LocalesDir, locales)
	}
}

func TestWatch_InvalidReloadKeepsPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "auditor:\n  locale: en-US\n")

	got := startWatch(t, path)
	// A first valid reload proves the watcher is live.
	waitFor(t, got,
		func() { writeFile(t, path, "auditor:\n  locale: de\n") },
		func(c *Config) bool { return c.Auditor.Locale == "de" })
	writeFile(t, path, "auditor: [not: a map\n")

	// Late deliveries of the earlier valid write are fine; nothing else is.
	quiet := time.After(4 * reloadDebounce)
wait:
	for {
		select {
		case c := <-got:
			if c.Auditor.Locale != "de" {
				t.Fatalf("unexpected config delivered: %+v", c.Auditor)
			}
		case <-quiet:
			break wait
		}
	}

	c := waitFor(t, got,
		func() { writeFile(t, path, "auditor:\n  locale: it\n") },
		func(c *Config) bool { return c.Auditor.Locale == "it" })
	if c.Auditor.Locale != "it" {
		t.Errorf("locale after recovery: got %q, want it", c.Auditor.Locale)
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a missing file")
	}
}
