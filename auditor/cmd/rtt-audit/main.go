package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/rttaudit/auditor/internal/config"
	"github.com/obsidianstack/rttaudit/auditor/internal/i18n"
	"github.com/obsidianstack/rttaudit/auditor/internal/runner"
	"github.com/obsidianstack/rttaudit/auditor/internal/store"
)

func main() { os.Exit(main1()) }

func main1() int {
	level := new(slog.LevelVar)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "path to config file; built-in defaults when empty",
		EnvVars: []string{"RTT_AUDIT_CONFIG"},
	}

	app := &cli.App{
		Name:  "rtt-audit",
		Usage: "score a page load by its worst origin round trip time",
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "audit one network log and print the report",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "log", Aliases: []string{"l"}, Usage: "network log file path or http(s) URL", Required: true},
					&cli.StringFlag{Name: "locale", Usage: "report locale (BCP-47); config default when empty"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatJSON, Usage: "output format: json | table"},
				},
				Action: func(c *cli.Context) error { return runCmd(c, level) },
			},
			{
				Name:      "batch",
				Usage:     "audit several network logs and print one summary line per log",
				ArgsUsage: "<log> [<log>...]",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "locale", Usage: "report locale (BCP-47); config default when empty"},
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Value: 4, Usage: "concurrent audits"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatTable, Usage: "output format: json | table"},
				},
				Action: func(c *cli.Context) error { return batchCmd(c, level) },
			},
			{
				Name:   "serve",
				Usage:  "serve the REST API and /metrics",
				Flags:  []cli.Flag{configFlag},
				Action: func(c *cli.Context) error { return serveCmd(c, level) },
			},
			{
				Name:  "meta",
				Usage: "print the audit descriptor",
				Flags: []cli.Flag{
					configFlag,
					&cli.StringFlag{Name: "locale", Usage: "descriptor locale (BCP-47)"},
				},
				Action: metaCmd,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("rtt-audit: failed", "err", err)
		return 1
	}
	return 0
}

// loadConfig loads path, or the defaults when path is empty, and applies
// the configured log level.
func loadConfig(path string, level *slog.LevelVar) (*config.Config, error) {
	cfg := config.Defaults()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := level.UnmarshalText([]byte(cfg.Auditor.LogLevel)); err != nil {
		return nil, fmt.Errorf("config: log level: %w", err)
	}
	return cfg, nil
}

func loadRegistry(cfg *config.Config) (*i18n.Registry, error) {
	return i18n.LoadRegistry(cfg.Auditor.LocalesDir, cfg.Auditor.Locale)
}

var _ runner.Sink = (*store.Archive)(nil)

// openArchive connects the configured report archive. It returns no
// options when the archive is disabled.
func openArchive(ctx context.Context, cfg *config.Config) ([]runner.Option, func(), error) {
	ac := cfg.Auditor.Archive
	if !ac.Enabled() {
		return nil, func() {}, nil
	}
	dsn := ac.DSN()
	if dsn == "" {
		return nil, nil, fmt.Errorf("archive: environment variable %s is empty", ac.DSNEnv)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("archive: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("archive: ping: %w", err)
	}

	a := store.NewArchive(db, ac.Table)
	if err := a.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	slog.Info("rtt-audit: archiving reports", "table", ac.Table)
	return []runner.Option{runner.WithSink(a)}, func() { db.Close() }, nil
}
