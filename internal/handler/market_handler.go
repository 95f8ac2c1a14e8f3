package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/forgelabs/scriptforge/internal/market"
	"github.com/forgelabs/scriptforge/internal/pkg/errcode"
	"github.com/forgelabs/scriptforge/internal/pkg/response"
)

type MarketHandler struct {
	market           *market.Service
	defaultMaxVideos int
}

func NewMarketHandler(svc *market.Service, defaultMaxVideos int) *MarketHandler {
	return &MarketHandler{market: svc, defaultMaxVideos: defaultMaxVideos}
}

type marketReportRequest struct {
	Topic     string `json:"topic"`
	MaxVideos int    `json:"max_videos"`
}

func (h *MarketHandler) Report(c *gin.Context) {
	var req marketReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	maxVideos := req.MaxVideos
	if maxVideos <= 0 {
		maxVideos = h.defaultMaxVideos
	}
	report, err := h.market.TopicReport(c.Request.Context(), req.Topic, maxVideos)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, report)
}
