package events

import (
	"context"
	"encoding/json"
	"errors"

	"newsdigest/logger"
	"newsdigest/orchestrator"
	"newsdigest/state"
	"newsdigest/types"
)

// TypedMessageHandler decodes JSON messages into T before processing
type TypedMessageHandler[T any] struct {
	// Validate reports whether the message should be processed
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark commits undecodable and invalid messages instead of redelivering them
	AlwaysMark bool
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Log.Warnf("❌ Failed to unmarshal message: %v", err)
		return h.AlwaysMark, nil
	}
	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}
	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}

// StartFunc starts a run; it matches orchestrator.Runner.Start
type StartFunc func(req types.RunRequest) (string, error)

// NewRunRequestHandler starts a run per request. Requests that arrive during a run are folded
// into it; invalid ones are dropped.
func NewRunRequestHandler(start StartFunc) *TypedMessageHandler[types.RunRequest] {
	return &TypedMessageHandler[types.RunRequest]{
		AlwaysMark: true,
		Process: func(_ context.Context, req *types.RunRequest) error {
			if req.RequestedBy == "" {
				req.RequestedBy = "kafka"
			}
			runID, err := start(*req)
			switch {
			case errors.Is(err, state.ErrBusy):
				logger.Log.Infof("Run request from %s coalesced into the active run", req.RequestedBy)
				return nil
			case errors.Is(err, orchestrator.ErrInvalidRequest):
				logger.Log.Warnf("Dropping run request from %s: %v", req.RequestedBy, err)
				return nil
			case err != nil:
				return err
			}
			logger.Log.Infof("Run %s started by %s", runID, req.RequestedBy)
			return nil
		},
	}
}
