package analysis

import (
	"strings"

	"newsdigest/types"
)

// MatchTopic tags a summary with the first keyword it mentions, case-insensitively
func MatchTopic(summary string, keywords []string) string {
	lower := strings.ToLower(summary)
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k != "" && strings.Contains(lower, k) {
			return kw
		}
	}
	return types.DefaultTopic
}
