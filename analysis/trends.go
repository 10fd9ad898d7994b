package analysis

import (
	"sort"
	"strings"
	"unicode"
)

const DefaultTrendTopN = 5

const trimChars = ".,!?\";()[]{}"

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`the and for are but not you all can had her was one our out day
		get has him his how its may new now old see two who boy did she use oil sit way own say`) {
		stopWords[w] = struct{}{}
	}
}

// TrendingKeywords returns the topN most frequent content words across texts.
// Equal counts keep the order in which words were first seen.
func TrendingKeywords(texts []string, topN int) []string {
	if topN <= 0 {
		topN = DefaultTrendTopN
	}

	counts := map[string]int{}
	var order []string
	for _, text := range texts {
		for _, raw := range strings.Fields(text) {
			word := strings.Trim(strings.ToLower(raw), trimChars)
			if !isContentWord(word) {
				continue
			}
			if _, seen := counts[word]; !seen {
				order = append(order, word)
			}
			counts[word]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

func isContentWord(word string) bool {
	if len([]rune(word)) <= 3 {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	_, stop := stopWords[word]
	return !stop
}
