package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"newsdigest/types"
)

// Model is a thin client; all run state lives in the service and is polled
type Model struct {
	Client *ServiceClient

	// per-run overrides sent with every 'r'; empty means the service defaults
	Feeds    []string
	Keywords []string

	Status    *types.StatusResponse
	Report    *types.Report
	Connected bool
	Notice    string
	Err       error
}

func NewModel(serviceURL string) Model {
	return Model{Client: NewServiceClient(serviceURL)}
}

// WithOverrides sets the feeds and keywords sent with each run request
func (m Model) WithOverrides(feeds, keywords []string) Model {
	m.Feeds = feeds
	m.Keywords = keywords
	return m
}

func (m Model) runRequest() types.RunRequest {
	return types.RunRequest{
		RequestedBy: "tui",
		Feeds:       m.Feeds,
		Keywords:    m.Keywords,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		pollStatus(m.Client),
		pollReport(m.Client),
		tickCmd(),
	)
}

func (m Model) state() types.RunState {
	if m.Status == nil {
		return types.StateIdle
	}
	return m.Status.State
}

func (m Model) stateText() string {
	if !m.Connected {
		msg := "❌ Not connected to the digest service"
		if m.Err != nil {
			msg += fmt.Sprintf(" (%v)", m.Err)
		}
		return ErrorStyle.Render(msg)
	}

	switch m.state() {
	case types.StateIdle:
		return HighlightStyle.Render("👋 Ready") + "\n\n" + InfoStyle.Render("Press 'r' to start a run")
	case types.StateFetching:
		return StatusStyle.Render("📡 Fetching RSS feeds...")
	case types.StateChunking:
		return StatusStyle.Render("✂️ Chunking articles...")
	case types.StateIndexing:
		return StatusStyle.Render("🧠 Building vector index...")
	case types.StateAnalyzing:
		return StatusStyle.Render("🔍 Analyzing articles...")
	case types.StateComplete:
		return HighlightStyle.Render("✅ COMPLETE")
	case types.StateError:
		msg := "Unknown error"
		if m.Status.Error != "" {
			msg = m.Status.Error
		}
		return ErrorStyle.Render("❌ Error: " + msg)
	}
	return ""
}
