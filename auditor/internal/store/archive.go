package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/obsidianstack/rttaudit/pkg/types"
)

// Archive persists reports to a PostgreSQL table. Writes are idempotent
// per report ID.
type Archive struct {
	db    *sql.DB
	table string
}

// NewArchive returns an Archive writing to table. table must be a plain
// SQL identifier; config validation guarantees this.
func NewArchive(db *sql.DB, table string) *Archive {
	return &Archive{db: db, table: table}
}

func (a *Archive) Name() string { return "postgres" }

// EnsureSchema creates the archive table if it does not exist.
func (a *Archive) EnsureSchema(ctx context.Context) error {
	_, err := a.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+a.table+` (
	id           TEXT PRIMARY KEY,
	audit_id     TEXT NOT NULL,
	page_url     TEXT NOT NULL,
	locale       TEXT NOT NULL,
	score        DOUBLE PRECISION NOT NULL,
	max_rtt_ms   DOUBLE PRECISION NOT NULL,
	report       JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("store: create archive table: %w", err)
	}
	return nil
}

// WriteReport inserts rep. A report already archived under the same ID is
// left unchanged.
func (a *Archive) WriteReport(ctx context.Context, rep *types.Report) error {
	doc, err := json.Marshal(rep)
	if err != nil {
		return fmt.Errorf("store: marshal report: %w", err)
	}
	generated, err := time.Parse(time.RFC3339, rep.GeneratedAt)
	if err != nil {
		return fmt.Errorf("store: report %s generated_at: %w", rep.ID, err)
	}

	_, err = a.db.ExecContext(ctx,
		"INSERT INTO "+a.table+" (id, audit_id, page_url, locale, score, max_rtt_ms, report, generated_at)"+
			" VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (id) DO NOTHING",
		rep.ID, rep.AuditID, rep.PageURL, rep.Locale, rep.Score, rep.RawValue, doc, generated,
	)
	if err != nil {
		return fmt.Errorf("store: archive report %s: %w", rep.ID, err)
	}
	return nil
}
