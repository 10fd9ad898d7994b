package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"newsdigest/types"
)

const pollInterval = 500 * time.Millisecond

// StatusUpdateMsg carries a status poll result
type StatusUpdateMsg struct {
	Status *types.StatusResponse
	Err    error
}

// ReportUpdateMsg carries the latest report, nil when none exists yet
type ReportUpdateMsg struct {
	Report *types.Report
	Err    error
}

// TickMsg triggers the next poll
type TickMsg struct {
	Time time.Time
}

// RunStartedMsg is sent after the user asked for a run
type RunStartedMsg struct {
	RunID string
	Err   error
}

func pollStatus(client *ServiceClient) tea.Cmd {
	return func() tea.Msg {
		status, err := client.GetStatus()
		return StatusUpdateMsg{Status: status, Err: err}
	}
}

func pollReport(client *ServiceClient) tea.Cmd {
	return func() tea.Msg {
		report, err := client.GetReport()
		return ReportUpdateMsg{Report: report, Err: err}
	}
}

func startRun(client *ServiceClient, req types.RunRequest) tea.Cmd {
	return func() tea.Msg {
		id, err := client.StartRun(req)
		return RunStartedMsg{RunID: id, Err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}
