package model

// EmbeddingCache is one durable cache row: the vector computed for a given
// model/task over a given content hash. Lets a re-ingestion reuse vectors
// for byte-identical chunk text instead of calling the provider again.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"embedding"`
	Ctime       int64     `json:"ctime"`
}
