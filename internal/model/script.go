package model

// ScriptRequest describes a video script order: who is speaking, what to
// cover, and how long the result should run.
type ScriptRequest struct {
	BrandName      string   `json:"brand_name"`
	Focus          string   `json:"focus"`
	Topic          string   `json:"topic"`
	KeyPoints      []string `json:"key_points"`
	Tone           string   `json:"tone"`
	RuntimeMinutes int      `json:"runtime_minutes"`
}

type Script struct {
	Topic       string `json:"topic"`
	Markdown    string `json:"markdown"`
	Cached      bool   `json:"cached"`
	GeneratedAt int64  `json:"generated_at"`
}

// ResearchReport summarizes one research run: the expanded search terms and
// the ingestion outcome per fetched source.
type ResearchReport struct {
	Topic       string         `json:"topic"`
	SearchTerms []string       `json:"search_terms"`
	Sources     []IngestResult `json:"sources"`
}
