package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/obsidianstack/rttaudit/auditor/internal/audit"
	"github.com/obsidianstack/rttaudit/pkg/types"
)

const (
	formatJSON  = "json"
	formatTable = "table"
)

func writeReport(w io.Writer, rep *types.Report, format string) error {
	if format == formatTable {
		return writeTable(w, rep)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// writeTable prints a headline followed by the details table.
func writeTable(w io.Writer, rep *types.Report) error {
	if _, err := fmt.Fprintf(w, "%s: %s (score %.2f)\n\n", rep.Title, rep.DisplayValue, rep.Score); err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	var origin, rtt string
	for _, h := range rep.Details.Headings {
		switch h.Key {
		case audit.ColumnOrigin:
			origin = h.Label
		case audit.ColumnRTT:
			rtt = h.Label
		}
	}
	fmt.Fprintf(tw, "%s\t%s\n", origin, rtt)
	for _, row := range rep.Details.Items {
		ms, _ := row[audit.ColumnRTT].(float64)
		fmt.Fprintf(tw, "%v\t%.0f ms\n", row[audit.ColumnOrigin], ms)
	}
	return tw.Flush()
}
