package api

import (
	"net/http"

	"newsdigest/orchestrator"

	"github.com/gin-gonic/gin"
)

// RegisterReportRoutes registers report and configuration endpoints.
func RegisterReportRoutes(r *gin.Engine, runner *orchestrator.Runner) {
	g := r.Group("/api")
	g.GET("/report", handleGetReport(runner))
	g.GET("/config", handleGetConfig(runner))
}

func handleGetReport(runner *orchestrator.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		report := runner.State().LastReport()
		if report == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no report available yet"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}

// handleGetConfig returns the effective settings the dashboard shows as defaults
func handleGetConfig(runner *orchestrator.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		cfg := runner.Config()
		c.JSON(http.StatusOK, gin.H{
			"feeds":          cfg.Feeds,
			"keywords":       cfg.Keywords,
			"recent_hours":   cfg.RecentHours,
			"max_articles":   cfg.MaxArticles,
			"retrieval_k":    cfg.RetrievalK,
			"vector_backend": cfg.VectorBackend,
			"llm_provider":   cfg.LLMProvider,
			"schedule":       cfg.Schedule,
		})
	}
}
