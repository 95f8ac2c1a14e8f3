package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
	"github.com/forgelabs/scriptforge/internal/retrieve"
)

type SearchHandler struct {
	retriever   *retrieve.Service
	defaultTopK int
}

func NewSearchHandler(retriever *retrieve.Service, defaultTopK int) *SearchHandler {
	if defaultTopK <= 0 {
		defaultTopK = 5
	}
	return &SearchHandler{retriever: retriever, defaultTopK: defaultTopK}
}

type searchRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k"`
	SourceIDs []string `json:"source_ids"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.TopK == 0 {
		req.TopK = h.defaultTopK
	}
	passages, err := h.retriever.Retrieve(c.Request.Context(), req.Query, req.TopK, req.SourceIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"passages": passages})
}

type contextRequest struct {
	Query     string   `json:"query"`
	SourceIDs []string `json:"source_ids"`
}

// Context returns a single prompt-ready block built from the top passages.
func (h *SearchHandler) Context(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	block, err := h.retriever.RetrieveContext(c.Request.Context(), req.Query, req.SourceIDs)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"context": block})
}
