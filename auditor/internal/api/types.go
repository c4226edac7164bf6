package api

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Status      string `json:"status"`
	ReportCount int    `json:"report_count"`
}

// MetaResponse is the payload for GET /api/v1/meta.
type MetaResponse struct {
	ID                string   `json:"id"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	ScoreDisplayMode  string   `json:"score_display_mode"`
	RequiredArtifacts []string `json:"required_artifacts"`
	Locale            string   `json:"locale"`
	Locales           []string `json:"locales"`
}

type errorResponse struct {
	Error string `json:"error"`
}
