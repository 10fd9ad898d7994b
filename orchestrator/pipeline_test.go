package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"newsdigest/config"
	"newsdigest/logger"
	"newsdigest/types"
	"newsdigest/vectorindex"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

type fakeFetcher struct {
	articles []*types.Article
	calls    int
}

func (f *fakeFetcher) FetchAll(context.Context, []string) []*types.Article {
	f.calls++
	return f.articles
}

type fakeChunker struct {
	calls int
}

func (f *fakeChunker) Split(articles []*types.Article) []types.Chunk {
	f.calls++
	var chunks []types.Chunk
	for _, a := range articles {
		if a.Content == "" {
			continue
		}
		chunks = append(chunks, types.Chunk{
			ID:       "chunk-" + a.ID,
			Text:     a.Content,
			Metadata: types.ChunkMetadata{Source: a.Link, Link: a.Link, Title: a.Title},
		})
	}
	return chunks
}

// fakeIndex returns stored chunks in insertion order
type fakeIndex struct {
	chunks    []types.Chunk
	persisted bool
	closed    bool
	gotK      int
	addErr    error
}

func (f *fakeIndex) Add(_ context.Context, chunks []types.Chunk) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.chunks = append(f.chunks, chunks...)
	return nil
}

func (f *fakeIndex) Persist(context.Context) error { f.persisted = true; return nil }

func (f *fakeIndex) Retrieve(_ context.Context, _ string, k int) ([]types.ScoredChunk, error) {
	f.gotK = k
	var hits []types.ScoredChunk
	for i, c := range f.chunks {
		if i == k {
			break
		}
		hits = append(hits, types.ScoredChunk{Chunk: c, Score: 1})
	}
	return hits, nil
}

func (f *fakeIndex) Count(context.Context) (int, error) { return len(f.chunks), nil }
func (f *fakeIndex) Close() error                       { f.closed = true; return nil }

type fakeSummarizer struct {
	calls int
	panic string
}

func (f *fakeSummarizer) Summarize(_ context.Context, chunks []types.Chunk) string {
	f.calls++
	if f.panic != "" && strings.Contains(chunks[0].Text, f.panic) {
		panic("unexpected model payload")
	}
	return "Summary about AI: " + chunks[0].Text
}

type fakeClassifier struct{ calls int }

func (f *fakeClassifier) Classify(context.Context, string) string {
	f.calls++
	return types.SentimentPositive
}

type recordingSink struct {
	reports []*types.Report
	err     error
}

func (r *recordingSink) Name() string { return "recording" }
func (r *recordingSink) Deliver(_ context.Context, rep *types.Report) error {
	r.reports = append(r.reports, rep)
	return r.err
}

type fakeSeen struct {
	drop   map[string]bool
	marked []*types.Article
}

func (f *fakeSeen) Filter(_ context.Context, articles []*types.Article) []*types.Article {
	var out []*types.Article
	for _, a := range articles {
		if !f.drop[a.Link] {
			out = append(out, a)
		}
	}
	return out
}

func (f *fakeSeen) MarkReported(_ context.Context, articles []*types.Article) {
	f.marked = append(f.marked, articles...)
}

type harness struct {
	cfg        *config.Config
	fetcher    *fakeFetcher
	chunker    *fakeChunker
	index      *fakeIndex
	indexCalls int
	summarizer *fakeSummarizer
	classifier *fakeClassifier
	sink       *recordingSink
	stages     []types.RunState
}

func newHarness(articles []*types.Article) *harness {
	return &harness{
		cfg: &config.Config{
			Feeds:       []string{"https://feed.example.com/rss"},
			Keywords:    []string{"AI", "Technology"},
			RetrievalK:  10,
			MaxArticles: 8,
			TrendTopN:   5,
		},
		fetcher:    &fakeFetcher{articles: articles},
		chunker:    &fakeChunker{},
		index:      &fakeIndex{},
		summarizer: &fakeSummarizer{},
		classifier: &fakeClassifier{},
		sink:       &recordingSink{},
	}
}

func (h *harness) pipeline(seen SeenFilter) *Pipeline {
	return New(h.cfg, Dependencies{
		Fetcher: h.fetcher,
		Chunker: h.chunker,
		NewIndex: func(context.Context) (vectorindex.Index, error) {
			h.indexCalls++
			return h.index, nil
		},
		Summarizer: h.summarizer,
		Classifier: h.classifier,
		Seen:       seen,
		Sinks:      []Sink{h.sink},
		Progress: func(stage types.RunState, _ string) {
			h.stages = append(h.stages, stage)
		},
	})
}

func makeArticles(n int) []*types.Article {
	articles := make([]*types.Article, n)
	for i := range articles {
		articles[i] = &types.Article{
			ID:      fmt.Sprintf("a%d", i),
			Title:   fmt.Sprintf("Story %d", i),
			Link:    fmt.Sprintf("https://news.example.com/%d", i),
			Content: fmt.Sprintf("Story %d about technology markets", i),
		}
	}
	return articles
}

func TestRunNoArticlesStopsEarly(t *testing.T) {
	logger.Discard()
	h := newHarness(nil)

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != types.ReportNoArticles || report.Message != types.MessageNoArticles {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.chunker.calls != 0 || h.indexCalls != 0 || h.summarizer.calls != 0 || h.classifier.calls != 0 {
		t.Fatalf("no stage may run after an empty fetch")
	}
	if len(h.sink.reports) != 0 {
		t.Fatalf("empty runs are not delivered")
	}
}

func TestRunLogsDeduplicationCountOnce(t *testing.T) {
	logger.Discard()
	hook := logrustest.NewLocal(logger.Log)
	defer logger.Log.ReplaceHooks(make(logrus.LevelHooks))

	articles := makeArticles(3)
	articles = append(articles, &types.Article{ID: "dup", Link: articles[0].Link, Content: "dup"})
	if _, err := newHarness(articles).pipeline(nil).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	count := 0
	for _, e := range hook.AllEntries() {
		if strings.Contains(e.Message, "Total unique articles after deduplication") {
			count++
			if !strings.HasSuffix(e.Message, ": 3") {
				t.Fatalf("unexpected count line %q", e.Message)
			}
		}
	}
	if count != 1 {
		t.Fatalf("dedup count logged %d times; want 1", count)
	}
}

func TestRunNoChunksStopsEarly(t *testing.T) {
	logger.Discard()
	h := newHarness([]*types.Article{{ID: "x", Link: "https://e.com/x"}})

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != types.ReportNoChunks || report.ArticleCount != 1 {
		t.Fatalf("unexpected report %+v", report)
	}
	if h.indexCalls != 0 || h.summarizer.calls != 0 {
		t.Fatalf("index and analysis must not run without chunks")
	}
}

func TestRunCompleteCapsResults(t *testing.T) {
	logger.Discard()
	articles := makeArticles(12)
	// duplicate link is dropped before chunking
	articles = append(articles, &types.Article{ID: "dup", Link: articles[0].Link, Content: "dup"})
	h := newHarness(articles)

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != types.ReportComplete {
		t.Fatalf("status = %s", report.Status)
	}
	if report.ArticleCount != 12 || report.ChunkCount != 12 {
		t.Fatalf("counts = %d articles, %d chunks", report.ArticleCount, report.ChunkCount)
	}
	if h.index.gotK != 10 || report.CandidateCount != 10 {
		t.Fatalf("k = %d, candidates = %d; want 10", h.index.gotK, report.CandidateCount)
	}
	if len(report.Results) != 8 {
		t.Fatalf("expected 8 results, got %d", len(report.Results))
	}
	if !h.index.persisted || !h.index.closed {
		t.Fatalf("index should be persisted and closed")
	}

	first := report.Results[0]
	if first.URL != "https://news.example.com/0" || first.Title != "Story 0" {
		t.Fatalf("unexpected first result %+v", first)
	}
	if first.Sentiment != types.SentimentPositive || first.Topic != "AI" {
		t.Fatalf("unexpected labels %+v", first)
	}
	if len(report.Trending) == 0 || report.Trending[0] != "story" {
		t.Fatalf("unexpected trends %v", report.Trending)
	}
	if len(h.sink.reports) != 1 || h.sink.reports[0] != report {
		t.Fatalf("report should be delivered once")
	}
	if h.stages[0] != types.StateFetching || h.stages[len(h.stages)-1] != types.StateAnalyzing {
		t.Fatalf("unexpected stage sequence %v", h.stages)
	}
}

func TestRunKClampedToChunkCount(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(4))

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if h.index.gotK != 4 || len(report.Results) != 4 {
		t.Fatalf("k = %d, results = %d; want 4", h.index.gotK, len(report.Results))
	}
}

func TestRunSkipsPanickingCandidate(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(3))
	h.summarizer.panic = "Story 1 "

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	for _, r := range report.Results {
		if r.URL == "https://news.example.com/1" {
			t.Fatalf("panicking candidate should be skipped")
		}
	}
}

func TestRunIndexErrorIsFatal(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(2))
	p := h.pipeline(nil)
	p.deps.NewIndex = func(context.Context) (vectorindex.Index, error) {
		return nil, errors.New("embedding service unreachable")
	}

	report, err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "embedding service unreachable") {
		t.Fatalf("expected index error, got %v", err)
	}
	if report != nil {
		t.Fatalf("no report on fatal error")
	}
	if h.summarizer.calls != 0 {
		t.Fatalf("analysis must not run without an index")
	}
}

func TestRunRecoversTopLevelPanic(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(2))
	p := h.pipeline(nil)
	p.deps.Chunker = nil

	report, err := p.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "pipeline panic") {
		t.Fatalf("expected recovered panic, got %v", err)
	}
	if report != nil {
		t.Fatalf("no report after a panic")
	}
}

func TestRunSinkErrorsAreNotFatal(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(2))
	h.sink.err = errors.New("bucket not found")

	report, err := h.pipeline(nil).Run(context.Background())
	if err != nil || report.Status != types.ReportComplete {
		t.Fatalf("Run = %+v, %v", report, err)
	}
}

func TestRunSeenFilter(t *testing.T) {
	logger.Discard()
	articles := makeArticles(3)
	h := newHarness(articles)
	seen := &fakeSeen{drop: map[string]bool{articles[1].Link: true}}

	report, err := h.pipeline(seen).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.ArticleCount != 2 {
		t.Fatalf("seen article should be filtered, got %d", report.ArticleCount)
	}
	if len(seen.marked) != 2 {
		t.Fatalf("reported articles should be marked, got %d", len(seen.marked))
	}
}

func TestRunCancelledContextYieldsNoResults(t *testing.T) {
	logger.Discard()
	h := newHarness(makeArticles(3))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := h.pipeline(nil).Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Status != types.ReportNoResults || report.Message != types.MessageNoResults {
		t.Fatalf("unexpected report %+v", report)
	}
}

func TestResultURLFallback(t *testing.T) {
	tests := []struct {
		meta types.ChunkMetadata
		want string
	}{
		{types.ChunkMetadata{Source: "s", Link: "l"}, "s"},
		{types.ChunkMetadata{Link: "l"}, "l"},
		{types.ChunkMetadata{}, "N/A"},
	}
	for _, tt := range tests {
		if got := resultURL(tt.meta); got != tt.want {
			t.Fatalf("resultURL(%+v) = %q; want %q", tt.meta, got, tt.want)
		}
	}
	if resultTitle(types.ChunkMetadata{}) != "Untitled" {
		t.Fatalf("missing title should be Untitled")
	}
}

func TestWriteReport(t *testing.T) {
	report := &types.Report{
		Status:   types.ReportComplete,
		Trending: []string{"chips", "markets"},
		Results: []types.AnalysisResult{
			{Summary: "Chip exports tighten.", Sentiment: "Negative", Topic: "Technology", URL: "https://e.com/1"},
			{Summary: "Markets rally.", Sentiment: "Positive", Topic: "General", URL: "https://e.com/2"},
		},
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, report); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		strings.Repeat("=", 60),
		"📰 NEWS ANALYSIS REPORT",
		"🔥 TRENDING KEYWORDS:",
		"chips, markets",
		"📋 TOP 2 NEWS ARTICLES:",
		"1. Chip exports tighten.\n   💭 Sentiment: Negative | 🏷️ Topic: Technology\n   🔗 Link: https://e.com/1\n\n",
		"2. Markets rally.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatalf("non-terminal output should not be styled")
	}
}

func TestWriteReportEmptyState(t *testing.T) {
	var buf bytes.Buffer
	WriteReport(&buf, &types.Report{Status: types.ReportNoResults, Message: types.MessageNoResults})
	if buf.String() != "❌ No results to display.\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}
