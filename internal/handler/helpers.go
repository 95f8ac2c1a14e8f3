package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/forgelabs/scriptforge/internal/ai"
	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	appErr "github.com/forgelabs/scriptforge/internal/pkg/errors"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Warn("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrInvalid), errors.Is(err, ai.ErrInvalidInput):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, err.Error())
	case errors.Is(err, ai.ErrRateLimited):
		response.Error(c, errcode.ErrTooMany, "provider rate limited")
	case errors.Is(err, ai.ErrUnavailable):
		response.Error(c, errcode.ErrAIUnavailable, "ai provider unavailable")
	case errors.Is(err, appErr.ErrStorage):
		response.Error(c, errcode.ErrStorage, "storage error")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}
