package model

// Chunk is a bounded contiguous segment of a source document, the unit of
// embedding and retrieval. ChunkID is derived from the source id and the
// chunk's byte offset, so unchanged leading content keeps its ids across
// re-ingestions.
type Chunk struct {
	ChunkID     string `json:"chunk_id"`
	SourceID    string `json:"source_id"`
	Text        string `json:"text"`
	OffsetStart int    `json:"offset_start"`
	OffsetEnd   int    `json:"offset_end"`
}

// IndexEntry is the persisted tuple held by the vector index.
type IndexEntry struct {
	ChunkID     string    `json:"chunk_id"`
	SourceID    string    `json:"source_id"`
	Text        string    `json:"text"`
	OffsetStart int       `json:"offset_start"`
	OffsetEnd   int       `json:"offset_end"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}

// ScoredEntry is an index entry with its similarity score for one query.
type ScoredEntry struct {
	Entry IndexEntry `json:"entry"`
	Score float32    `json:"score"`
}

// RetrievedPassage is what the retrieval service hands to callers.
type RetrievedPassage struct {
	Text     string  `json:"text"`
	SourceID string  `json:"source_id"`
	ChunkID  string  `json:"chunk_id"`
	Score    float32 `json:"score"`
}
