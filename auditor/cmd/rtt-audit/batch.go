package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/rttaudit/auditor/internal/audit"
	"github.com/obsidianstack/rttaudit/auditor/internal/metrics"
	"github.com/obsidianstack/rttaudit/auditor/internal/netlog"
	"github.com/obsidianstack/rttaudit/auditor/internal/runner"
	"github.com/obsidianstack/rttaudit/auditor/internal/timing"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

// batchResult is the outcome of auditing one log location.
type batchResult struct {
	Location string        `json:"location"`
	Report   *types.Report `json:"report,omitempty"`
	Err      string        `json:"error,omitempty"`
}

func batchCmd(c *cli.Context, level *slog.LevelVar) error {
	locations := c.Args().Slice()
	if len(locations) == 0 {
		return fmt.Errorf("usage: rtt-audit batch <log> [<log>...]")
	}
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
	// One memoization scope per invocation: duplicate logs are analyzed once.
	opts = append(opts, runner.WithScope("batch-"+uuid.NewString()))
	rn := runner.New(provider, reg, rec, nil, opts...)

	locale := c.String("locale")
	if locale == "" {
		locale = cfg.Auditor.Locale
	}

	bar := progressbar.NewOptions(len(locations),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription("auditing logs"),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)

	results := auditAll(c.Context, locations, c.Int("workers"),
		func(ctx context.Context, loc string) (*types.Report, error) {
			l, err := loader.Load(ctx, loc)
			if err != nil {
				return nil, err
			}
			return rn.Run(ctx, l, locale)
		},
		func() { bar.Add(1) }, //nolint:errcheck
	)
	bar.Finish() //nolint:errcheck

	if path := cfg.Auditor.Metrics.Textfile; path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			slog.Warn("rtt-audit: textfile export failed", "path", path, "err", err)
		}
	}

	if err := writeBatch(os.Stdout, results, format); err != nil {
		return err
	}
	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d audits failed", failed, len(results))
	}
	return nil
}

// auditAll audits every location with at most workers concurrent calls and
// returns the results in input order. done is called after each location.
func auditAll(
	ctx context.Context,
	locations []string,
	workers int,
	fn func(context.Context, string) (*types.Report, error),
	done func(),
) []batchResult {
	if workers < 1 {
		workers = 1
	}
	results := make([]batchResult, len(locations))
	jobs := make(chan int)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				res := batchResult{Location: locations[idx]}
				rep, err := fn(ctx, locations[idx])
				if err != nil {
					res.Err = err.Error()
				} else {
					res.Report = rep
				}
				results[idx] = res

				mu.Lock()
				done()
				mu.Unlock()
			}
		}()
	}

	for i := range locations {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

func countFailed(results []batchResult) int {
	n := 0
	for _, r := range results {
		if r.Err != "" {
			n++
		}
	}
	return n
}

// writeBatch prints one JSON object per line, or a table with the worst
// origin of each log.
func writeBatch(w io.Writer, results []batchResult, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		for _, r := range results {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LOG\tSCORE\tMAX RTT\tWORST ORIGIN")
	for _, r := range results {
		if r.Err != "" {
			fmt.Fprintf(tw, "%s\t-\t-\terror: %s\n", r.Location, r.Err)
			continue
		}
		worst := "-"
		if items := r.Report.Details.Items; len(items) > 0 {
			worst = fmt.Sprint(items[0][audit.ColumnOrigin])
		}
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\n", r.Location, r.Report.Score, r.Report.DisplayValue, worst)
	}
	return tw.Flush()
}
