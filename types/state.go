package types

import "time"

// RunState represents the pipeline state machine in serve mode
type RunState string

const (
	StateIdle      RunState = "idle"
	StateFetching  RunState = "fetching"
	StateChunking  RunState = "chunking"
	StateIndexing  RunState = "indexing"
	StateAnalyzing RunState = "analyzing"
	StateComplete  RunState = "complete"
	StateError     RunState = "error"
)

// Busy reports whether a run is in progress
func (s RunState) Busy() bool {
	switch s {
	case StateIdle, StateComplete, StateError:
		return false
	}
	return true
}

// LogEntry represents a single log line with timestamp
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// StatusResponse is the JSON response for GET /api/status
type StatusResponse struct {
	State          RunState   `json:"state"`
	RunID          string     `json:"run_id,omitempty"`
	Logs           []LogEntry `json:"logs"`
	ArticleCount   int        `json:"article_count"`
	ChunkCount     int        `json:"chunk_count"`
	ResultCount    int        `json:"result_count"`
	LastFinishedAt *time.Time `json:"last_finished_at,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// RunRequest asks the service to start a run, optionally with overrides
type RunRequest struct {
	RequestedBy string   `json:"requested_by,omitempty"`
	Feeds       []string `json:"feeds,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
}
