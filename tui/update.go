package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case TickMsg:
		return m, tea.Batch(pollStatus(m.Client), pollReport(m.Client), tickCmd())
	case StatusUpdateMsg:
		return m.handleStatus(msg)
	case ReportUpdateMsg:
		return m.handleReport(msg)
	case RunStartedMsg:
		return m.handleRunStarted(msg)
	}
	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "r", "R":
		if !m.Connected {
			return m, nil
		}
		if m.state().Busy() {
			m.Notice = "A run is already in progress"
			return m, nil
		}
		m.Notice = "Starting run..."
		return m, startRun(m.Client, m.runRequest())
	}
	return m, nil
}

func (m Model) handleStatus(msg StatusUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Connected = false
		m.Err = msg.Err
		return m, nil
	}
	m.Connected = true
	m.Err = nil
	m.Status = msg.Status
	return m, nil
}

func (m Model) handleReport(msg ReportUpdateMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Notice = fmt.Sprintf("Failed to load report: %v", msg.Err)
		return m, nil
	}
	if msg.Report != nil {
		m.Report = msg.Report
	}
	return m, nil
}

func (m Model) handleRunStarted(msg RunStartedMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.Notice = fmt.Sprintf("Could not start run: %v", msg.Err)
		return m, nil
	}
	m.Notice = "Run " + msg.RunID + " started"
	return m, pollStatus(m.Client)
}
