package model

// SourceDocument is one fetched reference article. A re-fetch of the same
// source produces a new RawText under the same SourceID; documents are
// superseded, never edited in place.
type SourceDocument struct {
	SourceID  string `json:"source_id"`
	Title     string `json:"title"`
	URL       string `json:"url"`
	RawText   string `json:"raw_text"`
	FetchedAt int64  `json:"fetched_at"`
}

// Fingerprint records the last successfully ingested content of a source.
// A row exists only after at least one ingestion committed for the source.
type Fingerprint struct {
	SourceID        string `json:"source_id"`
	ContentHash     string `json:"content_hash"`
	ChunkCount      int    `json:"chunk_count"`
	LastProcessedAt int64  `json:"last_processed_at"`
}
