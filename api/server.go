package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"newsdigest/logger"
	"newsdigest/orchestrator"
	"newsdigest/state"
	"newsdigest/types"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

// Server is the dashboard HTTP server plus the run scheduler
type Server struct {
	runner     *orchestrator.Runner
	router     *gin.Engine
	httpServer *http.Server
	cron       *cron.Cron
	mu         sync.Mutex
}

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(runner *orchestrator.Runner) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterHealthRoutes(r)
	RegisterRunRoutes(r, runner)
	RegisterReportRoutes(r, runner)
	return r
}

func NewServer(runner *orchestrator.Runner, port string) *Server {
	router := NewRouter(runner)
	return &Server{
		runner: runner,
		router: router,
		httpServer: &http.Server{
			Addr:              ":" + port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		cron: cron.New(),
	}
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP in the background
func (s *Server) Start() error {
	logger.Log.Infof("Starting dashboard server on %s", s.httpServer.Addr)

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatalf("HTTP server error: %v", err)
		}
	}()
	return nil
}

// StartCron triggers a run on schedule; ticks that land during a run are skipped
func (s *Server) StartCron(schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, s.scheduledRun)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}
	s.cron.Start()
	logger.Log.Infof("Cron job started with schedule: %s", schedule)
	return nil
}

func (s *Server) scheduledRun() {
	runID, err := s.runner.Start(types.RunRequest{RequestedBy: "cron"})
	if errors.Is(err, state.ErrBusy) {
		logger.Log.Infof("Cron skipped: %v", err)
		return
	}
	if err != nil {
		logger.Log.Errorf("Cron run failed to start: %v", err)
		return
	}
	logger.Log.Infof("Cron triggered run %s", runID)
}

// Shutdown stops the scheduler and drains HTTP connections
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Log.Info("Shutting down dashboard server...")

	cronCtx := s.cron.Stop()
	select {
	case <-cronCtx.Done():
	case <-ctx.Done():
	}
	return s.httpServer.Shutdown(ctx)
}
