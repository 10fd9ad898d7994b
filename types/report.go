package types

import "time"

// Sentiment labels
const (
	SentimentPositive = "Positive"
	SentimentNeutral  = "Neutral"
	SentimentNegative = "Negative"
)

// DefaultTopic is used when no keyword matches a summary
const DefaultTopic = "General"

// AnalysisResult is the per-candidate output of the pipeline
type AnalysisResult struct {
	Summary   string `json:"summary"`
	Sentiment string `json:"sentiment"`
	Topic     string `json:"topic"`
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
}

// ReportStatus describes how a run ended
type ReportStatus string

const (
	ReportComplete   ReportStatus = "complete"
	ReportNoArticles ReportStatus = "no_articles"
	ReportNoChunks   ReportStatus = "no_chunks"
	ReportNoResults  ReportStatus = "no_results"
)

// Empty-state messages shown to the operator
const (
	MessageNoArticles = "No articles found. Please check your internet connection and RSS feeds."
	MessageNoChunks   = "No valid chunks created."
	MessageNoResults  = "No results to display."
)

// Report is everything a single pipeline run produced
type Report struct {
	RunID          string           `json:"run_id"`
	Status         ReportStatus     `json:"status"`
	Message        string           `json:"message,omitempty"`
	StartedAt      time.Time        `json:"started_at"`
	FinishedAt     time.Time        `json:"finished_at"`
	Keywords       []string         `json:"keywords"`
	ArticleCount   int              `json:"article_count"`
	ChunkCount     int              `json:"chunk_count"`
	CandidateCount int              `json:"candidate_count"`
	Trending       []string         `json:"trending"`
	Results        []AnalysisResult `json:"results"`

	// Articles that produced the results; used to mark them as seen
	Articles []*Article `json:"-"`
}

// Empty reports whether the run ended before producing results
func (r *Report) Empty() bool {
	return r.Status != ReportComplete
}
