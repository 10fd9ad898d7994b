package rssfeeds

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"newsdigest/logger"
	"newsdigest/types"

	"github.com/mmcdole/gofeed"
)

const (
	// BrowserUserAgent is sent with every feed request; several outlets reject unknown clients
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	DefaultTimeout = 10 * time.Second

	// MinContentLength is the exclusive lower bound on trimmed article text
	MinContentLength = 50

	untitled = "No Title"
)

// Fetcher downloads and parses feeds
type Fetcher struct {
	client    *http.Client
	userAgent string
}

// NewFetcher creates a fetcher whose requests time out after timeout (DefaultTimeout if zero)
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: BrowserUserAgent,
	}
}

// FetchFeed retrieves and parses one feed. It never fails: any network, HTTP status or parse
// error is logged and an empty slice is returned.
func (f *Fetcher) FetchFeed(ctx context.Context, feedURL string) []*types.Article {
	result := f.fetch(ctx, feedURL)
	if result.Error != "" {
		logger.Log.WithField("feed", feedURL).Warnf("Error fetching feed: %s", result.Error)
		return []*types.Article{}
	}
	return result.Articles
}

// FetchAll fetches feeds one at a time in list order and concatenates their articles
func (f *Fetcher) FetchAll(ctx context.Context, feedURLs []string) []*types.Article {
	var all []*types.Article
	for _, feedURL := range feedURLs {
		if ctx.Err() != nil {
			break
		}
		logger.Log.Infof("Fetching from: %s", feedURL)
		articles := f.FetchFeed(ctx, feedURL)
		logger.Log.Infof("Loaded %d articles from %s", len(articles), feedURL)
		all = append(all, articles...)
	}
	return all
}

func (f *Fetcher) fetch(ctx context.Context, feedURL string) *types.FeedResult {
	result := &types.FeedResult{FeedURL: feedURL, FetchedAt: time.Now()}

	parser := gofeed.NewParser()
	parser.Client = f.client
	parser.UserAgent = f.userAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		result.Error = fmt.Sprintf("failed to fetch feed: %v", err)
		return result
	}

	articles := make([]*types.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		if article := articleFromItem(item, feedURL, result.FetchedAt); article != nil {
			articles = append(articles, article)
		}
	}

	result.Articles = articles
	result.ArticleCount = len(articles)
	return result
}

// articleFromItem maps a feed entry to an Article, or nil when its text is too short
func articleFromItem(item *gofeed.Item, feedURL string, fetchedAt time.Time) *types.Article {
	title := item.Title
	if title == "" {
		title = untitled
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	summary = HTMLToText(summary)

	content := title
	if summary != "" {
		content = title + "\n\n" + summary
	}
	if utf8.RuneCountInString(strings.TrimSpace(content)) <= MinContentLength {
		return nil
	}

	return &types.Article{
		ID:        articleID(item.Link, title, content),
		Title:     title,
		Summary:   summary,
		Link:      item.Link,
		Published: item.Published,
		FeedURL:   feedURL,
		Content:   content,
		FetchedAt: fetchedAt,
	}
}

func articleID(link, title, content string) string {
	if link != "" {
		return GenerateID(link)
	}
	if title != "" {
		return GenerateID(title)
	}
	return GenerateID(content)
}
