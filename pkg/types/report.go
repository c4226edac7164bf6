package types

// Column value types understood by report renderers.
const (
	ValueTypeText = "text"
	ValueTypeMs   = "ms"
)

// Heading describes one column of a TableDetails.
type Heading struct {
	Key         string  `json:"key"`
	ValueType   string  `json:"value_type"`
	Label       string  `json:"label"`
	Granularity float64 `json:"granularity,omitempty"`
}

// Row is one table item keyed by Heading.Key.
type Row map[string]any

// TableDetails is a structured, renderer-agnostic table description.
type TableDetails struct {
	Type     string    `json:"type"` // always "table"
	Headings []Heading `json:"headings"`
	Items    []Row     `json:"items"`
}

// Report is the outcome of one audit run as returned by the API and CLI.
type Report struct {
	ID               string       `json:"id"`
	AuditID          string       `json:"audit_id"`
	Title            string       `json:"title"`
	Description      string       `json:"description"`
	ScoreDisplayMode string       `json:"score_display_mode"`
	Locale           string       `json:"locale"`
	PageURL          string       `json:"page_url,omitempty"`
	Score            float64      `json:"score"`
	RawValue         float64      `json:"raw_value"` // max RTT in ms
	DisplayValue     string       `json:"display_value"`
	Details          TableDetails `json:"details"`
	GeneratedAt      string       `json:"generated_at"` // RFC 3339
}
