package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
	"github.com/forgelabs/scriptforge/internal/storage"
)

type SourceHandler struct {
	store storage.Store
}

func NewSourceHandler(store storage.Store) *SourceHandler {
	return &SourceHandler{store: store}
}

func (h *SourceHandler) List(c *gin.Context) {
	fingerprints, err := h.store.ListFingerprints(c.Request.Context())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"sources": fingerprints})
}

func (h *SourceHandler) Get(c *gin.Context) {
	sourceID := c.Param("id")
	fp, ok, err := h.store.Fingerprint(c.Request.Context(), sourceID)
	if err != nil {
		handleError(c, err)
		return
	}
	if !ok {
		response.Error(c, errcode.ErrNotFound, "source not found")
		return
	}
	response.Success(c, fp)
}

func (h *SourceHandler) Delete(c *gin.Context) {
	sourceID := c.Param("id")
	if err := h.store.DeleteSource(c.Request.Context(), sourceID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"source_id": sourceID})
}
