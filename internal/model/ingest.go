package model

type IngestStatus string

const (
	IngestStatusUnchanged  IngestStatus = "unchanged"
	IngestStatusReingested IngestStatus = "reingested"
	IngestStatusFailed     IngestStatus = "failed"
)

// IngestResult reports the outcome of one ingestion pass over a source.
type IngestResult struct {
	SourceID   string       `json:"source_id"`
	Status     IngestStatus `json:"status"`
	ChunkCount int          `json:"chunk_count"`
	// Embedded counts chunks that actually hit the embedding provider;
	// reused vectors do not increment it.
	Embedded int    `json:"embedded"`
	Error    string `json:"error,omitempty"`
}
