package audit

import "github.com/obsidianstack/rttaudit/auditor/internal/i18n"

// Score display modes.
const (
	// ScoreModeInformative scores are shown but never gate pass/fail.
	ScoreModeInformative = "informative"
)

// ArtifactDevtoolsLogs is the network activity log artifact.
const ArtifactDevtoolsLogs = "devtoolsLogs"

// Descriptor is the static registration metadata of an audit.
type Descriptor struct {
	ID                string
	ScoreDisplayMode  string
	RequiredArtifacts []string
	TitleID           i18n.MessageID
	DescriptionID     i18n.MessageID
}

// Meta describes the network RTT audit.
var Meta = Descriptor{
	ID:                "network-rtt",
	ScoreDisplayMode:  ScoreModeInformative,
	RequiredArtifacts: []string{ArtifactDevtoolsLogs},
	TitleID:           i18n.MsgTitle,
	DescriptionID:     i18n.MsgDescription,
}

// Title returns the localized title.
func (d Descriptor) Title(b *i18n.Bundle) string { return b.Message(d.TitleID) }

// Description returns the localized description.
func (d Descriptor) Description(b *i18n.Bundle) string { return b.Message(d.DescriptionID) }
