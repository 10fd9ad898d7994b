package tui

import (
	"github.com/charmbracelet/lipgloss"

	"newsdigest/types"
)

const (
	colorPrimary   = "#7D56F4"
	colorSuccess   = "#04B575"
	colorError     = "#FF0000"
	colorInfo      = "#626262"
	colorHighlight = "#FAFAFA"
	colorBorder    = "#874BFD"
	colorNeutral   = "#F2C94C"
	colorTrend     = "#FF8C00"
)

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary)).
			MarginTop(1).
			MarginBottom(1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess))

	ErrorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorError))

	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorInfo))

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(0, 1).
			Width(80)

	HighlightStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorHighlight)).
			Background(lipgloss.Color(colorPrimary)).
			Padding(0, 1)

	BadgeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorHighlight)).
			Background(lipgloss.Color(colorTrend)).
			Padding(0, 1).
			MarginRight(1)
)

// sentimentStyle colors a sentiment label
func sentimentStyle(label string) lipgloss.Style {
	switch label {
	case types.SentimentPositive:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess)).Bold(true)
	case types.SentimentNegative:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorError)).Bold(true)
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color(colorNeutral)).Bold(true)
	}
}
