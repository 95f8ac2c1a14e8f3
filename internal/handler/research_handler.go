package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
	"github.com/forgelabs/scriptforge/internal/research"
)

type ResearchHandler struct {
	research *research.Service
}

func NewResearchHandler(svc *research.Service) *ResearchHandler {
	return &ResearchHandler{research: svc}
}

type researchRequest struct {
	Topic     string   `json:"topic"`
	KeyPoints []string `json:"key_points"`
}

func (h *ResearchHandler) Research(c *gin.Context) {
	var req researchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	report, err := h.research.Research(c.Request.Context(), req.Topic, req.KeyPoints)
	if err != nil {
		handleError(c, err)
		return
	}
	if allFailed(report.Sources) {
		response.Error(c, errcode.ErrFetchFailed, "no source could be fetched")
		return
	}
	response.Success(c, report)
}

func allFailed(sources []model.IngestResult) bool {
	if len(sources) == 0 {
		return true
	}
	for _, src := range sources {
		if src.Status != model.IngestStatusFailed {
			return false
		}
	}
	return true
}
