package types

import "time"

// Article represents one feed entry after fetching and cleanup
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary,omitempty"`
	Link      string    `json:"link,omitempty"`
	Published string    `json:"published,omitempty"`
	FeedURL   string    `json:"feed_url"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`

	// Populated only when full-text extraction is enabled
	FullText        string `json:"full_text,omitempty"`
	ExtractionError string `json:"extraction_error,omitempty"`
}

// Text returns the text that should be chunked for this article.
func (a *Article) Text() string {
	if a.FullText == "" {
		return a.Content
	}
	return a.Content + "\n\n" + a.FullText
}

// FeedResult is the outcome of fetching a single feed
type FeedResult struct {
	FeedURL      string     `json:"feed_url"`
	FetchedAt    time.Time  `json:"fetched_at"`
	ArticleCount int        `json:"article_count"`
	Articles     []*Article `json:"articles"`
	Error        string     `json:"error,omitempty"`
}
