package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/model"
	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
	"github.com/forgelabs/scriptforge/internal/script"
)

type ScriptHandler struct {
	generator *script.Generator
}

func NewScriptHandler(generator *script.Generator) *ScriptHandler {
	return &ScriptHandler{generator: generator}
}

func (h *ScriptHandler) Generate(c *gin.Context) {
	var req model.ScriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	out, err := h.generator.Generate(c.Request.Context(), &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, out)
}

type summaryRequest struct {
	Topic string `json:"topic"`
	// Type is key_facts, context, angles, or related_topics.
	Type string `json:"type"`
}

func (h *ScriptHandler) Summarize(c *gin.Context) {
	var req summaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	out, err := h.generator.Summarize(c.Request.Context(), req.Topic, req.Type)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"summary": out})
}
