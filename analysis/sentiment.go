package analysis

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"newsdigest/llm"
	"newsdigest/logger"
	"newsdigest/types"
)

const sentimentPrompt = `
Analyze the sentiment of this news summary. Respond with exactly one word: Positive, Neutral, or Negative.

Summary: %s

Sentiment:`

// Classifier labels a summary Positive, Neutral or Negative
type Classifier struct {
	gen llm.Generator
}

func NewClassifier(gen llm.Generator) *Classifier {
	return &Classifier{gen: gen}
}

// Classify always returns one of the three labels; anything unusable maps to Neutral
func (c *Classifier) Classify(ctx context.Context, summary string) string {
	out, err := c.gen.Generate(ctx, fmt.Sprintf(sentimentPrompt, summary), 0)
	if err != nil {
		logger.Log.Warnf("Error analyzing sentiment: %v", err)
		return types.SentimentNeutral
	}
	return ParseSentiment(out)
}

// ParseSentiment reads the first word of a model reply
func ParseSentiment(reply string) string {
	fields := strings.Fields(reply)
	if len(fields) == 0 {
		return types.SentimentNeutral
	}
	word := strings.ToLower(strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	}))

	switch word {
	case "positive":
		return types.SentimentPositive
	case "negative":
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}
