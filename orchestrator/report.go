package orchestrator

import (
	"fmt"
	"io"
	"strings"

	"newsdigest/types"

	"github.com/charmbracelet/lipgloss"
)

const bannerWidth = 60

// WriteReport prints the console report. Styling is dropped when w is not a terminal.
func WriteReport(w io.Writer, report *types.Report) error {
	r := lipgloss.NewRenderer(w)
	heading := r.NewStyle().Bold(true)
	trend := r.NewStyle().Foreground(lipgloss.Color("214"))

	var b strings.Builder
	if report.Empty() {
		fmt.Fprintf(&b, "❌ %s\n", report.Message)
		_, err := io.WriteString(w, b.String())
		return err
	}

	rule := strings.Repeat("=", bannerWidth)
	fmt.Fprintf(&b, "\n%s\n%s\n%s\n", rule, heading.Render("📰 NEWS ANALYSIS REPORT"), rule)

	if len(report.Trending) > 0 {
		fmt.Fprintf(&b, "\n%s\n", heading.Render("🔥 TRENDING KEYWORDS:"))
		fmt.Fprintln(&b, trend.Render(strings.Join(report.Trending, ", ")))
	}

	fmt.Fprintf(&b, "\n%s\n\n", heading.Render(fmt.Sprintf("📋 TOP %d NEWS ARTICLES:", len(report.Results))))
	for i, res := range report.Results {
		fmt.Fprintf(&b, "%d. %s\n", i+1, res.Summary)
		fmt.Fprintf(&b, "   💭 Sentiment: %s | 🏷️ Topic: %s\n", res.Sentiment, res.Topic)
		fmt.Fprintf(&b, "   🔗 Link: %s\n\n", res.URL)
	}

	_, err := io.WriteString(w, b.String())
	return err
}
