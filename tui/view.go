package tui

import (
	"fmt"
	"strings"

	"newsdigest/types"
)

const (
	maxLogLines    = 10
	maxTitleLength = 80
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("📰 News Digest"))
	b.WriteString("\n\n")
	b.WriteString(m.stateText())
	b.WriteString("\n\n")

	if s := m.Status; s != nil && m.Connected {
		stats := fmt.Sprintf("📊 Articles: %d | Chunks: %d | Results: %d", s.ArticleCount, s.ChunkCount, s.ResultCount)
		b.WriteString(InfoStyle.Render(stats))
		b.WriteString("\n\n")

		if len(s.Logs) > 0 {
			b.WriteString(InfoStyle.Render("📝 Recent Activity:"))
			b.WriteString("\n")
			logs := s.Logs
			if len(logs) > maxLogLines {
				logs = logs[len(logs)-maxLogLines:]
			}
			for _, entry := range logs {
				line := fmt.Sprintf("   %s %s", entry.Timestamp.Format("15:04:05"), entry.Message)
				b.WriteString(InfoStyle.Render(line))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	if m.Report != nil {
		b.WriteString(renderReport(m.Report))
	}

	if m.Notice != "" {
		b.WriteString(StatusStyle.Render(m.Notice))
		b.WriteString("\n")
	}
	if len(m.Keywords) > 0 || len(m.Feeds) > 0 {
		b.WriteString(InfoStyle.Render(fmt.Sprintf("⚙️ Overrides: %d feeds | keywords: %s", len(m.Feeds), strings.Join(m.Keywords, ", "))))
		b.WriteString("\n")
	}
	b.WriteString(InfoStyle.Render("Press 'r' to run | Press 'q' or Ctrl+C to quit"))
	return b.String()
}

func renderReport(r *types.Report) string {
	var b strings.Builder
	if r.Empty() {
		b.WriteString(ErrorStyle.Render("❌ " + r.Message))
		b.WriteString("\n\n")
		return b.String()
	}

	if len(r.Trending) > 0 {
		b.WriteString("🔥 Trending: ")
		for _, kw := range r.Trending {
			b.WriteString(BadgeStyle.Render(kw))
		}
		b.WriteString("\n\n")
	}

	for i, res := range r.Results {
		var card strings.Builder
		title := res.Title
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&card, "%d. %s\n", i+1, truncate(title, maxTitleLength))
		fmt.Fprintf(&card, "%s\n", res.Summary)
		fmt.Fprintf(&card, "💭 %s | 🏷️ %s\n", sentimentStyle(res.Sentiment).Render(res.Sentiment), res.Topic)
		fmt.Fprintf(&card, "🔗 %s", res.URL)
		b.WriteString(CardStyle.Render(card.String()))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// truncate cuts s to at most n runes, ending in "..." when shortened
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
