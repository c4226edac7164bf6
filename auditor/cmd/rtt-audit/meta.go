package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/obsidianstack/rttaudit/auditor/internal/audit"
	"github.com/obsidianstack/rttaudit/auditor/internal/config"
	"github.com/obsidianstack/rttaudit/auditor/internal/i18n"
)

type metaOutput struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ScoreDisplayMode  string   `json:"score_display_mode"`
	RequiredArtifacts []string `json:"required_artifacts"`
	Locale            string   `json:"locale"`
}

func metaCmd(c *cli.Context) error {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return err
		}
	}
	reg, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	return writeMeta(os.Stdout, reg.Bundle(c.String("locale")))
}

func writeMeta(w io.Writer, b *i18n.Bundle) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(metaOutput{
		ID:                audit.Meta.ID,
		Title:             audit.Meta.Title(b),
		Description:       audit.Meta.Description(b),
		ScoreDisplayMode:  audit.Meta.ScoreDisplayMode,
		RequiredArtifacts: audit.Meta.RequiredArtifacts,
		Locale:            b.Locale(),
	})
}
