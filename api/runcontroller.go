package api

import (
	"errors"
	"io"
	"net/http"

	"newsdigest/orchestrator"
	"newsdigest/state"
	"newsdigest/types"

	"github.com/gin-gonic/gin"
)

// RegisterRunRoutes registers run control endpoints.
func RegisterRunRoutes(r *gin.Engine, runner *orchestrator.Runner) {
	g := r.Group("/api")
	g.POST("/run", handleStartRun(runner))
	g.GET("/status", handleStatus(runner))
}

// RunRequest is the optional body of POST /api/run
type RunRequest struct {
	Feeds       []string `json:"feeds"`
	Keywords    []string `json:"keywords"`
	RequestedBy string   `json:"requested_by"`
}

// handleStartRun starts a run asynchronously and returns 202 Accepted immediately.
func handleStartRun(runner *orchestrator.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RunRequest
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if req.RequestedBy == "" {
			req.RequestedBy = "api"
		}

		runID, err := runner.Start(types.RunRequest{
			RequestedBy: req.RequestedBy,
			Feeds:       req.Feeds,
			Keywords:    req.Keywords,
		})
		switch {
		case errors.Is(err, state.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case errors.Is(err, orchestrator.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{
			"status": "started",
			"run_id": runID,
		})
	}
}

func handleStatus(runner *orchestrator.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, runner.State().Status())
	}
}
