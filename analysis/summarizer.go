package analysis

import (
	"context"
	"fmt"
	"strings"

	"newsdigest/llm"
	"newsdigest/logger"
	"newsdigest/types"
)

const (
	NoSummary = "No summary available"

	// fallbackRunes is how much of the first chunk is kept when generation fails
	fallbackRunes = 200

	singlePrompt = "Summarize this news article in 2-3 sentences:\n\n%s"
	mapPrompt    = "Write a concise summary of the following:\n\n\"%s\"\n\nCONCISE SUMMARY:"
)

// Summarizer condenses retrieved chunks into a short summary
type Summarizer struct {
	gen         llm.Generator
	temperature float32
}

func NewSummarizer(gen llm.Generator, temperature float32) *Summarizer {
	return &Summarizer{gen: gen, temperature: temperature}
}

// Summarize never fails: on any generation error it returns the start of the first chunk
func (s *Summarizer) Summarize(ctx context.Context, chunks []types.Chunk) string {
	if len(chunks) == 0 {
		return NoSummary
	}

	summary, err := s.summarize(ctx, chunks)
	if err != nil {
		logger.Log.Warnf("Error summarizing: %v", err)
		return Fallback(chunks[0].Text)
	}
	return summary
}

func (s *Summarizer) summarize(ctx context.Context, chunks []types.Chunk) (string, error) {
	if len(chunks) == 1 {
		out, err := s.gen.Generate(ctx, fmt.Sprintf(singlePrompt, chunks[0].Text), s.temperature)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(out), nil
	}

	// map then reduce
	partials := make([]string, 0, len(chunks))
	for _, c := range chunks {
		out, err := s.gen.Generate(ctx, fmt.Sprintf(mapPrompt, c.Text), s.temperature)
		if err != nil {
			return "", fmt.Errorf("map step: %w", err)
		}
		partials = append(partials, strings.TrimSpace(out))
	}

	out, err := s.gen.Generate(ctx, fmt.Sprintf(mapPrompt, strings.Join(partials, "\n\n")), s.temperature)
	if err != nil {
		return "", fmt.Errorf("reduce step: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Fallback returns the first 200 characters of text followed by "..."
func Fallback(text string) string {
	runes := []rune(text)
	if len(runes) > fallbackRunes {
		runes = runes[:fallbackRunes]
	}
	return string(runes) + "..."
}
