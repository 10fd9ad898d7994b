package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"newsdigest/config"
	"newsdigest/logger"
	"newsdigest/state"
	"newsdigest/types"

	"github.com/google/uuid"
)

// ErrInvalidRequest marks run requests with unusable overrides
var ErrInvalidRequest = errors.New("invalid run request")

// Runner starts background runs for the API, the scheduler and the run-request consumer.
// The state manager admits one run at a time.
type Runner struct {
	ctx   context.Context
	cfg   *config.Config
	deps  Dependencies
	state *state.Manager
	wg    sync.WaitGroup
}

// NewRunner binds runs to ctx; cancelling it stops in-flight runs between candidates
func NewRunner(ctx context.Context, cfg *config.Config, deps Dependencies, st *state.Manager) *Runner {
	return &Runner{ctx: ctx, cfg: cfg, deps: deps, state: st}
}

// Config returns the base configuration
func (r *Runner) Config() *config.Config { return r.cfg }

// State returns the run-state manager
func (r *Runner) State() *state.Manager { return r.state }

// Start validates req, claims the run guard and runs the pipeline in the background.
// It returns state.ErrBusy while another run is active.
func (r *Runner) Start(req types.RunRequest) (string, error) {
	feeds := config.ResolveFeeds(config.SplitList(req.Feeds))
	if err := config.ValidateFeeds(feeds); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	cfg := r.cfg.WithOverrides(feeds, req.Keywords)

	runID := uuid.NewString()
	if err := r.state.TryBegin(runID); err != nil {
		return "", err
	}
	if req.RequestedBy != "" {
		r.state.AddLog(fmt.Sprintf("Requested by %s", req.RequestedBy))
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.run(cfg, runID)
	}()
	return runID, nil
}

func (r *Runner) run(cfg *config.Config, runID string) {
	deps := r.deps
	deps.Progress = r.state.Progress

	report, err := New(cfg, deps).RunWithID(r.ctx, runID)
	if err != nil {
		logger.Log.WithField("run", runID).Errorf("💥 An error occurred in main pipeline: %v", err)
		r.state.Fail(err)
		return
	}
	r.state.Finish(report)
}

// Wait blocks until background runs have returned
func (r *Runner) Wait() {
	r.wg.Wait()
}
