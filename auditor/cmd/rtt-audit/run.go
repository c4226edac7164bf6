package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/rttaudit/auditor/internal/metrics"
	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
	"github.com/obsidianstack/rttaudit/auditor/internal/runner"
	"github.com/obsidianstack/rttaudit/auditor/internal/timing"
)

func runCmd(c *cli.Context, level *slog.LevelVar) error {
	format := c.String("format")
	if format != formatJSON && format != formatTable {
		return fmt.Errorf("unknown --format %q: want json|table", format)
	}

	cfg, err := loadConfig(c.String("config"), level)
	if err != nil {
		return err
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}

	loader, err := netlog.NewLoader(cfg.Auditor.LogSource)
	if err != nil {
		return err
	}
	l, err := loader.Load(c.Context, c.String("log"))
	if err != nil {
		return err
	}

	rec := metrics.New()
	provider, err := timing.NewCachingProvider(cfg.Auditor.CacheSize, timing.WithCacheObserver(rec.ObserveCache))
	if err != nil {
		return err
	}

	opts, closeArchive, err := openArchive(c.Context, cfg)
	if err != nil {
		return err
	}
	defer closeArchive()

	locale := c.String("locale")
	if locale == "" {
		locale = cfg.Auditor.Locale
	}
	rep, err := runner.New(provider, reg, rec, nil, opts...).Run(c.Context, l, locale)
	if err != nil {
		return err
	}

	if path := cfg.Auditor.Metrics.Textfile; path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			slog.Warn("rtt-audit: textfile export failed", "path", path, "err", err)
		}
	}

	return writeReport(os.Stdout, rep, format)
}
