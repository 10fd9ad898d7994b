package rssfeeds

import (
	"context"
	"fmt"
	"time"

	"newsdigest/logger"
	"newsdigest/types"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultWorkerCount = 5
	extractorTimeout   = 30 * time.Second
)

// ExtractAllContent fetches the linked page of each article and stores its readable text in
// FullText. Failures are recorded on the article and never abort the batch.
// It returns the number of successful extractions.
func ExtractAllContent(ctx context.Context, articles []*types.Article, workers int) int {
	if workers <= 0 {
		workers = DefaultWorkerCount
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]error, len(articles))
	for i, article := range articles {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = ctx.Err()
				return nil
			}
			if err := extractContent(article); err != nil {
				article.ExtractionError = err.Error()
				results[i] = err
				logger.Log.Debugf("Failed to extract %s: %v", article.Link, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	success := 0
	for _, err := range results {
		if err == nil {
			success++
		}
	}
	logger.Log.Infof("Extracted full text for %d/%d articles", success, len(articles))
	return success
}

// extractContent fetches and extracts full content for a single article
func extractContent(article *types.Article) error {
	if article.Link == "" {
		return fmt.Errorf("article link is empty")
	}

	extracted, err := readability.FromURL(article.Link, extractorTimeout)
	if err != nil {
		return fmt.Errorf("readability extraction failed: %w", err)
	}

	article.FullText = collapseParagraphs(extracted.TextContent)
	article.ExtractionError = ""
	return nil
}
