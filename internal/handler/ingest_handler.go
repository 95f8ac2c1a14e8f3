package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/fetch"
	"github.com/forgelabs/scriptforge/internal/ingest"
	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
)

type IngestHandler struct {
	coordinator *ingest.Coordinator
}

func NewIngestHandler(coordinator *ingest.Coordinator) *IngestHandler {
	return &IngestHandler{coordinator: coordinator}
}

type ingestRequest struct {
	SourceID string `json:"source_id"`
	Title    string `json:"title"`
	URL      string `json:"url"`
	Text     string `json:"text"`
	// Format is text (default) or markdown; markdown is flattened to plain
	// text before chunking.
	Format string `json:"format"`
}

// Ingest accepts a raw document and runs it through the pipeline.
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.SourceID == "" {
		response.Error(c, errcode.ErrInvalid, "source_id is required")
		return
	}
	text := req.Text
	if req.Format == "markdown" {
		text = fetch.MarkdownToText(text)
	}
	res, err := h.coordinator.Ingest(c.Request.Context(), &model.SourceDocument{
		SourceID:  req.SourceID,
		Title:     req.Title,
		URL:       req.URL,
		RawText:   text,
		FetchedAt: time.Now().Unix(),
	})
	if err != nil {
		handleError(c, err)
		return
	}
	if res.Status == model.IngestStatusFailed {
		response.Error(c, errcode.ErrEmbeddingFailed, res.Error)
		return
	}
	response.Success(c, res)
}
