package model

// Video is one search hit from the video platform, the raw material of a
// market analysis.
type Video struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ViewCount   int64  `json:"view_count"`
	DurationSec int64  `json:"duration_seconds"`
}

// MarketReport bundles the competitive analysis of a topic: what is already
// published, which title formulas it uses, and where the gaps are. Markdown
// carries the rendered report, the other fields the structured pieces.
type MarketReport struct {
	Topic         string   `json:"topic"`
	Videos        []Video  `json:"videos"`
	TitlePatterns []string `json:"title_patterns"`
	TopicsCovered []string `json:"topics_covered"`
	GapAnalysis   string   `json:"gap_analysis"`
	Markdown      string   `json:"markdown"`
	GeneratedAt   int64    `json:"generated_at"`
}
