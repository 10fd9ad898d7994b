package analysis

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"newsdigest/logger"
	"newsdigest/types"
)

type scriptedGenerator struct {
	replies []string
	err     error
	failAt  int // 1-based call that fails; 0 means never
	prompts []string
	temps   []float32
}

func (g *scriptedGenerator) Generate(_ context.Context, prompt string, temperature float32) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.temps = append(g.temps, temperature)
	if g.err != nil && (g.failAt == 0 || g.failAt == len(g.prompts)) {
		return "", g.err
	}
	if len(g.replies) == 0 {
		return "", nil
	}
	r := g.replies[0]
	if len(g.replies) > 1 {
		g.replies = g.replies[1:]
	}
	return r, nil
}

func (g *scriptedGenerator) Model() string { return "scripted" }

func chunk(text string) types.Chunk { return types.Chunk{Text: text} }

func TestSummarizeSingleChunk(t *testing.T) {
	logger.Discard()
	gen := &scriptedGenerator{replies: []string{"  Chip makers face new limits.\n"}}

	got := NewSummarizer(gen, 0.3).Summarize(context.Background(), []types.Chunk{chunk("article body")})
	if got != "Chip makers face new limits." {
		t.Fatalf("Summarize = %q", got)
	}
	if len(gen.prompts) != 1 || gen.prompts[0] != "Summarize this news article in 2-3 sentences:\n\narticle body" {
		t.Fatalf("unexpected prompts %q", gen.prompts)
	}
	if gen.temps[0] != 0.3 {
		t.Fatalf("temperature = %v", gen.temps[0])
	}
}

func TestSummarizeMapReduce(t *testing.T) {
	logger.Discard()
	gen := &scriptedGenerator{replies: []string{"first", "second", "combined"}}

	got := NewSummarizer(gen, 0.3).Summarize(context.Background(), []types.Chunk{chunk("one"), chunk("two")})
	if got != "combined" {
		t.Fatalf("Summarize = %q", got)
	}
	if len(gen.prompts) != 3 {
		t.Fatalf("expected 2 map calls and 1 reduce call, got %d", len(gen.prompts))
	}
	if !strings.Contains(gen.prompts[2], "\"first\n\nsecond\"") {
		t.Fatalf("reduce prompt should join partial summaries: %q", gen.prompts[2])
	}
}

func TestSummarizeFallback(t *testing.T) {
	logger.Discard()
	long := strings.Repeat("é", 250)

	tests := []struct {
		name   string
		gen    *scriptedGenerator
		chunks []types.Chunk
		want   string
	}{
		{"no chunks", &scriptedGenerator{}, nil, NoSummary},
		{"single fails", &scriptedGenerator{err: errors.New("quota")}, []types.Chunk{chunk(long)}, strings.Repeat("é", 200) + "..."},
		{"short text", &scriptedGenerator{err: errors.New("quota")}, []types.Chunk{chunk("brief")}, "brief..."},
		{"reduce fails", &scriptedGenerator{err: errors.New("timeout"), failAt: 3}, []types.Chunk{chunk("a"), chunk("b")}, "a..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewSummarizer(tt.gen, 0.3).Summarize(context.Background(), tt.chunks)
			if got != tt.want {
				t.Fatalf("Summarize = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	logger.Discard()
	tests := []struct {
		reply string
		err   error
		want  string
	}{
		{"Positive", nil, "Positive"},
		{"positive.", nil, "Positive"},
		{"  NEGATIVE because prices fell", nil, "Negative"},
		{"neutral", nil, "Neutral"},
		{"Mixed", nil, "Neutral"},
		{"", nil, "Neutral"},
		{"**Negative**", nil, "Negative"},
		{"", errors.New("unavailable"), "Neutral"},
	}
	for _, tt := range tests {
		t.Run(tt.reply, func(t *testing.T) {
			gen := &scriptedGenerator{replies: []string{tt.reply}, err: tt.err}
			got := NewClassifier(gen).Classify(context.Background(), "summary")
			if got != tt.want {
				t.Fatalf("Classify(%q) = %q; want %q", tt.reply, got, tt.want)
			}
			if gen.temps[0] != 0 {
				t.Fatalf("sentiment must use temperature 0")
			}
			if !strings.Contains(gen.prompts[0], "Summary: summary\n\nSentiment:") {
				t.Fatalf("unexpected prompt %q", gen.prompts[0])
			}
		})
	}
}

func TestTrendingKeywords(t *testing.T) {
	texts := []string{
		"Markets rally as chips surge. Markets cheer!",
		"(Chips) shortage eases; markets steady, 2024 results and the outlook",
		"Outlook for chips remains strong",
	}
	got := TrendingKeywords(texts, 3)
	want := []string{"markets", "chips", "outlook"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TrendingKeywords = %v; want %v", got, want)
	}

	again := TrendingKeywords(texts, 3)
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("TrendingKeywords not deterministic")
	}
}

func TestTrendingKeywordsTiesKeepFirstOccurrence(t *testing.T) {
	got := TrendingKeywords([]string{"zebra apple mango apple zebra mango"}, 0)
	want := []string{"zebra", "apple", "mango"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("TrendingKeywords = %v; want %v", got, want)
	}
}

func TestTrendingKeywordsFiltersTokens(t *testing.T) {
	got := TrendingKeywords([]string{"the and oil a1b2 news2024 it's 100% tiny"}, 5)
	if !reflect.DeepEqual(got, []string{"tiny"}) {
		t.Fatalf("TrendingKeywords = %v", got)
	}
	if len(TrendingKeywords(nil, 5)) != 0 {
		t.Fatalf("expected no trends for no text")
	}
}

func TestMatchTopic(t *testing.T) {
	keywords := []string{"AI", "Stock Market", "Technology"}
	tests := []struct {
		summary string
		want    string
	}{
		{"The stock market closed higher on technology shares.", "Stock Market"},
		// plain substring match, so "ai" inside "regained" counts
		{"Markets regained ground after the technology selloff.", "AI"},
		{"TECHNOLOGY stocks slipped.", "Technology"},
		{"New AI chips announced.", "AI"},
		{"Weather was mild.", "General"},
	}
	for _, tt := range tests {
		if got := MatchTopic(tt.summary, keywords); got != tt.want {
			t.Fatalf("MatchTopic(%q) = %q; want %q", tt.summary, got, tt.want)
		}
	}
}
