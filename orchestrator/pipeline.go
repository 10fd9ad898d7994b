package orchestrator

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"newsdigest/analysis"
	"newsdigest/config"
	"newsdigest/deduplication"
	"newsdigest/logger"
	"newsdigest/types"
	"newsdigest/vectorindex"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Fetcher returns the articles of every feed; a failing feed contributes nothing
type Fetcher interface {
	FetchAll(ctx context.Context, feedURLs []string) []*types.Article
}

// Chunker splits articles into retrieval chunks
type Chunker interface {
	Split(articles []*types.Article) []types.Chunk
}

// Summarizer and Classifier never fail; they fall back to safe values
type Summarizer interface {
	Summarize(ctx context.Context, chunks []types.Chunk) string
}

type Classifier interface {
	Classify(ctx context.Context, summary string) string
}

// SeenFilter drops articles reported by earlier runs
type SeenFilter interface {
	Filter(ctx context.Context, articles []*types.Article) []*types.Article
	MarkReported(ctx context.Context, articles []*types.Article)
}

// Sink receives every finished report
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report *types.Report) error
}

// IndexFactory opens the vector index for one run
type IndexFactory func(ctx context.Context) (vectorindex.Index, error)

// ProgressFunc is told about each stage transition
type ProgressFunc func(stage types.RunState, msg string)

// Dependencies are the collaborators of a Pipeline. Seen, Extract, Sinks and Progress are optional.
type Dependencies struct {
	Fetcher    Fetcher
	Chunker    Chunker
	NewIndex   IndexFactory
	Summarizer Summarizer
	Classifier Classifier
	Seen       SeenFilter
	Extract    func(ctx context.Context, articles []*types.Article)
	Sinks      []Sink
	Progress   ProgressFunc
}

// Pipeline runs fetch, dedup, chunk, index, retrieve, analyze and deliver in sequence
type Pipeline struct {
	cfg  *config.Config
	deps Dependencies
}

func New(cfg *config.Config, deps Dependencies) *Pipeline {
	return &Pipeline{cfg: cfg, deps: deps}
}

func (p *Pipeline) progress(stage types.RunState, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	logger.Log.Info(msg)
	if p.deps.Progress != nil {
		p.deps.Progress(stage, msg)
	}
}

// Run executes one pipeline run under a fresh run id
func (p *Pipeline) Run(ctx context.Context) (*types.Report, error) {
	return p.RunWithID(ctx, uuid.NewString())
}

// RunWithID executes one pipeline run. Empty inputs end the run early with a report whose
// Status says why; only index failures and recovered panics are returned as errors.
func (p *Pipeline) RunWithID(ctx context.Context, runID string) (report *types.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("pipeline panic: %v\n%s", r, debug.Stack())
		}
	}()

	report = &types.Report{
		RunID:     runID,
		StartedAt: time.Now().UTC(),
		Keywords:  p.cfg.Keywords,
		Trending:  []string{},
		Results:   []types.AnalysisResult{},
	}
	finish := func(status types.ReportStatus, message string) *types.Report {
		report.Status = status
		report.Message = message
		report.FinishedAt = time.Now().UTC()
		return report
	}

	// 1. fetch and dedup
	p.progress(types.StateFetching, "📡 Fetching and cleaning news articles...")
	articles := deduplication.Deduplicate(p.deps.Fetcher.FetchAll(ctx, p.cfg.Feeds))
	logger.Log.Infof("Total unique articles after deduplication: %d", len(articles))
	if p.deps.Seen != nil {
		articles = p.deps.Seen.Filter(ctx, articles)
	}
	report.ArticleCount = len(articles)
	if len(articles) == 0 {
		p.progress(types.StateFetching, "❌ %s", types.MessageNoArticles)
		return finish(types.ReportNoArticles, types.MessageNoArticles), nil
	}
	p.progress(types.StateFetching, "✅ Found %d articles", len(articles))

	if p.deps.Extract != nil {
		p.deps.Extract(ctx, articles)
	}

	// 2. chunk
	p.progress(types.StateChunking, "📄 Splitting documents into chunks...")
	chunks := p.deps.Chunker.Split(articles)
	report.ChunkCount = len(chunks)
	if len(chunks) == 0 {
		p.progress(types.StateChunking, "❌ %s", types.MessageNoChunks)
		return finish(types.ReportNoChunks, types.MessageNoChunks), nil
	}
	p.progress(types.StateChunking, "✅ Created %d chunks", len(chunks))

	// 3. index
	p.progress(types.StateIndexing, "🔍 Creating vector store...")
	idx, err := p.deps.NewIndex(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	defer idx.Close()

	if err := idx.Add(ctx, chunks); err != nil {
		return nil, fmt.Errorf("failed to index chunks: %w", err)
	}
	if err := idx.Persist(ctx); err != nil {
		return nil, fmt.Errorf("failed to persist vector store: %w", err)
	}
	p.progress(types.StateIndexing, "✅ Vector store created")

	// 4. retrieve
	p.progress(types.StateIndexing, "🎯 Retrieving relevant documents...")
	query := strings.Join(p.cfg.Keywords, " ")
	candidates, err := idx.Retrieve(ctx, query, min(p.cfg.RetrievalK, len(chunks)))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve candidates: %w", err)
	}
	report.CandidateCount = len(candidates)
	p.progress(types.StateIndexing, "✅ Retrieved %d relevant documents", len(candidates))

	// 5. analyze
	p.progress(types.StateAnalyzing, "🧠 Analyzing articles...")
	maxArticles := min(p.cfg.MaxArticles, len(candidates))
	limiter := rate.NewLimiter(rate.Every(p.cfg.RequestDelay), 1)
	byLink := articlesByLink(articles)
	for i, hit := range candidates[:maxArticles] {
		p.progress(types.StateAnalyzing, "Processing article %d/%d...", i+1, maxArticles)

		result, err := p.analyze(ctx, limiter, hit)
		if err != nil {
			logger.Log.Errorf("❌ Error processing document %d: %v", i+1, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		report.Results = append(report.Results, result)
		if a, ok := byLink[hit.Metadata.Link]; ok {
			report.Articles = append(report.Articles, a)
		}
	}

	// 6. trends
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	report.Trending = analysis.TrendingKeywords(texts, p.cfg.TrendTopN)

	// 7. finish and deliver
	if len(report.Results) == 0 {
		p.progress(types.StateAnalyzing, "❌ %s", types.MessageNoResults)
		finish(types.ReportNoResults, types.MessageNoResults)
	} else {
		finish(types.ReportComplete, "")
	}

	p.deliver(ctx, report)
	if p.deps.Seen != nil && len(report.Articles) > 0 {
		p.deps.Seen.MarkReported(ctx, report.Articles)
	}
	return report, nil
}

// analyze produces the result for one candidate. A panic inside is returned as an error.
func (p *Pipeline) analyze(ctx context.Context, limiter *rate.Limiter, hit types.ScoredChunk) (result types.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := limiter.Wait(ctx); err != nil {
		return result, err
	}

	summary := p.deps.Summarizer.Summarize(ctx, []types.Chunk{hit.Chunk})
	sentiment := p.deps.Classifier.Classify(ctx, summary)

	return types.AnalysisResult{
		Summary:   summary,
		Sentiment: sentiment,
		Topic:     analysis.MatchTopic(summary, p.cfg.Keywords),
		URL:       resultURL(hit.Metadata),
		Title:     resultTitle(hit.Metadata),
	}, nil
}

func (p *Pipeline) deliver(ctx context.Context, report *types.Report) {
	for _, sink := range p.deps.Sinks {
		if err := sink.Deliver(ctx, report); err != nil {
			logger.Log.WithField("sink", sink.Name()).Warnf("Failed to deliver report: %v", err)
			continue
		}
		logger.Log.WithField("sink", sink.Name()).Debugf("Delivered report %s", report.RunID)
	}
}

func resultURL(m types.ChunkMetadata) string {
	if m.Source != "" {
		return m.Source
	}
	if m.Link != "" {
		return m.Link
	}
	return "N/A"
}

func resultTitle(m types.ChunkMetadata) string {
	if m.Title != "" {
		return m.Title
	}
	return "Untitled"
}

func articlesByLink(articles []*types.Article) map[string]*types.Article {
	m := make(map[string]*types.Article, len(articles))
	for _, a := range articles {
		if a.Link != "" {
			m[a.Link] = a
		}
	}
	return m
}

// IndexOptions maps cfg to index options. Every run starts from an empty index; persist keeps
// a snapshot of it in DB_DIR afterwards.
func IndexOptions(cfg *config.Config, persist bool) vectorindex.Options {
	opts := vectorindex.Options{
		Backend:          cfg.VectorBackend,
		Reset:            true,
		ChromaHost:       cfg.ChromaHost,
		ChromaPort:       cfg.ChromaPort,
		ChromaCollection: cfg.ChromaCollection,
	}
	if persist {
		opts.Dir = cfg.DBDir
	}
	return opts
}

// NewIndexFactory opens a fresh index per run
func NewIndexFactory(opts vectorindex.Options, embedder vectorindex.Embedder) IndexFactory {
	return func(ctx context.Context) (vectorindex.Index, error) {
		return vectorindex.New(ctx, opts, embedder)
	}
}
