package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"newsdigest/types"
)

// ErrBusy is returned by TryBegin while another run is active
var ErrBusy = errors.New("a run is already in progress")

const defaultMaxLogs = 50

// Manager holds the serve-mode run state with thread-safe access
type Manager struct {
	mu sync.RWMutex

	currentState types.RunState
	runID        string

	// Logs (ring buffer)
	logs    []types.LogEntry
	maxLogs int
	lastErr error

	lastReport     *types.Report
	lastFinishedAt *time.Time
}

func NewManager() *Manager {
	return &Manager{
		currentState: types.StateIdle,
		logs:         make([]types.LogEntry, 0),
		maxLogs:      defaultMaxLogs,
	}
}

// TryBegin claims the pipeline for runID, or returns ErrBusy
func (m *Manager) TryBegin(runID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.currentState.Busy() {
		return fmt.Errorf("%w (state=%s)", ErrBusy, m.currentState)
	}
	m.currentState = types.StateFetching
	m.runID = runID
	m.lastErr = nil
	m.appendLog(fmt.Sprintf("Run %s started", runID))
	return nil
}

// Progress records a stage transition; it matches the pipeline's progress callback
func (m *Manager) Progress(stage types.RunState, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = stage
	m.appendLog(msg)
}

// SetState sets the current state
func (m *Manager) SetState(state types.RunState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentState = state
}

// State returns the current state
func (m *Manager) State() types.RunState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentState
}

// AddLog adds a log entry
func (m *Manager) AddLog(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendLog(message)
}

// Finish stores the report and returns to a terminal state
func (m *Manager) Finish(report *types.Report) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.currentState = types.StateComplete
	m.lastReport = report
	m.lastFinishedAt = &now
	if report.Empty() {
		m.appendLog("❌ " + report.Message)
	} else {
		m.appendLog(fmt.Sprintf("✅ Run complete: %d results", len(report.Results)))
	}
}

// Fail records err and moves to the error state; the previous report stays available
func (m *Manager) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	m.currentState = types.StateError
	m.lastErr = err
	m.lastFinishedAt = &now
	m.appendLog(fmt.Sprintf("💥 An error occurred in main pipeline: %v", err))
}

// Status returns a snapshot of the current state
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	resp := types.StatusResponse{
		State:          m.currentState,
		RunID:          m.runID,
		Logs:           append([]types.LogEntry{}, m.logs...),
		LastFinishedAt: m.lastFinishedAt,
	}
	if m.lastReport != nil {
		resp.ArticleCount = m.lastReport.ArticleCount
		resp.ChunkCount = m.lastReport.ChunkCount
		resp.ResultCount = len(m.lastReport.Results)
	}
	if m.lastErr != nil {
		resp.Error = m.lastErr.Error()
	}
	return resp
}

// LastReport returns the most recent finished report, or nil
func (m *Manager) LastReport() *types.Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastReport
}

// appendLog must be called with the lock held
func (m *Manager) appendLog(message string) {
	m.logs = append(m.logs, types.LogEntry{
		Timestamp: time.Now(),
		Message:   message,
	})
	if len(m.logs) > m.maxLogs {
		m.logs = m.logs[len(m.logs)-m.maxLogs:]
	}
}
