package handler

import (
	"github.com/gin-gonic/gin"
)

type RouterDeps struct {
	Ingest   *IngestHandler
	Search   *SearchHandler
	Sources  *SourceHandler
	Research *ResearchHandler
	Scripts  *ScriptHandler
	Market   *MarketHandler
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/ingest", deps.Ingest.Ingest)

	api.POST("/search", deps.Search.Search)
	api.POST("/context", deps.Search.Context)

	api.GET("/sources", deps.Sources.List)
	api.GET("/sources/:id", deps.Sources.Get)
	api.DELETE("/sources/:id", deps.Sources.Delete)

	api.POST("/research", deps.Research.Research)

	api.POST("/scripts", deps.Scripts.Generate)
	api.POST("/scripts/summary", deps.Scripts.Summarize)

	api.POST("/market/report", deps.Market.Report)
}
