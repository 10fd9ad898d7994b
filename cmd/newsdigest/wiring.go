package main

import (
	"context"
	"fmt"
	"io"

	"newsdigest/analysis"
	"newsdigest/archive"
	"newsdigest/chunking"
	"newsdigest/config"
	"newsdigest/deduplication"
	"newsdigest/events"
	"newsdigest/llm"
	"newsdigest/logger"
	"newsdigest/orchestrator"
	"newsdigest/rssfeeds"
	"newsdigest/storage"
	"newsdigest/types"
	"newsdigest/vectorindex"
)

// components holds the pipeline dependencies and everything that must be closed on exit
type components struct {
	deps    orchestrator.Dependencies
	closers []io.Closer
}

func (c *components) track(v any) {
	if closer, ok := v.(io.Closer); ok {
		c.closers = append(c.closers, closer)
	}
}

func (c *components) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i].Close(); err != nil {
			logger.Log.Warnf("Close failed: %v", err)
		}
	}
}

// buildComponents wires providers, optional stores and sinks from cfg. persist keeps the local
// index snapshot in DB_DIR.
func buildComponents(ctx context.Context, cfg *config.Config, persist bool) (*components, error) {
	c := &components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	embedder, err := vectorindex.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.track(embedder)

	summaryGen, err := llm.New(ctx, cfg, cfg.SummaryModel)
	if err != nil {
		return nil, err
	}
	c.track(summaryGen)
	sentimentGen, err := llm.New(ctx, cfg, cfg.SentimentModel)
	if err != nil {
		return nil, err
	}
	c.track(sentimentGen)

	if cfg.RedisAddr != "" {
		cache, err := llm.NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			logger.Log.Warnf("⚠️ Generation cache disabled: %v", err)
		} else {
			c.track(cache)
			summaryGen = llm.NewCachedGenerator(summaryGen, cache)
			sentimentGen = llm.NewCachedGenerator(sentimentGen, cache)
		}
	}

	c.deps = orchestrator.Dependencies{
		Fetcher:    rssfeeds.NewFetcher(cfg.FetchTimeout),
		Chunker:    chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkWords),
		NewIndex:   orchestrator.NewIndexFactory(orchestrator.IndexOptions(cfg, persist), embedder),
		Summarizer: analysis.NewSummarizer(summaryGen, cfg.SummaryTemperature),
		Classifier: analysis.NewClassifier(sentimentGen),
	}

	if cfg.ExtractFullText {
		workers := cfg.ExtractWorkers
		c.deps.Extract = func(ctx context.Context, articles []*types.Article) {
			rssfeeds.ExtractAllContent(ctx, articles, workers)
		}
	}

	if cfg.SkipSeen {
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("SKIP_SEEN requires REDIS_ADDR")
		}
		bloom, err := deduplication.NewRedisBloom(ctx, deduplication.BloomConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.BloomKey,
			TTL:      cfg.BloomTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open seen filter: %w", err)
		}
		c.track(bloom)
		c.deps.Seen = deduplication.NewSeenFilter(bloom)
	}

	if err := c.addSinks(ctx, cfg); err != nil {
		return nil, err
	}

	ok = true
	return c, nil
}

func (c *components) addSinks(ctx context.Context, cfg *config.Config) error {
	if cfg.S3Bucket != "" {
		s3, err := archive.NewS3Archiver(ctx, archive.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return err
		}
		c.deps.Sinks = append(c.deps.Sinks, s3)
	}

	if cfg.DatabaseURL != "" {
		store, err := storage.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		c.track(store)
		c.deps.Sinks = append(c.deps.Sinks, store)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.ReportTopic != "" {
		pub, err := events.NewPublisher(cfg.KafkaBrokers, cfg.ReportTopic)
		if err != nil {
			return fmt.Errorf("failed to create report publisher: %w", err)
		}
		c.track(pub)
		c.deps.Sinks = append(c.deps.Sinks, pub)
	}

	for _, s := range c.deps.Sinks {
		logger.Log.Infof("Report sink enabled: %s", s.Name())
	}
	return nil
}
