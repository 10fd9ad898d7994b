package config

import "time"

// Feed and topic defaults
var (
	DefaultFeeds = []string{
		"https://techcrunch.com/feed/",
		"https://www.wired.com/feed/rss",
		"https://feeds.arstechnica.com/arstechnica/index",
		"https://rss.cnn.com/rss/edition.rss",
		"https://feeds.bbci.co.uk/news/rss.xml",
	}

	DefaultKeywords = []string{
		"technology",
		"science",
		"politics",
		"artificial intelligence",
		"machine learning",
	}
)

// Pipeline defaults
const (
	DefaultRecentHours   = 168
	DefaultMinChunkWords = 20
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
	DefaultDBDir         = "./news_vectorstore"
	DefaultFetchTimeout  = 10 * time.Second
	DefaultMaxArticles   = 8
	DefaultRetrievalK    = 10
	DefaultTrendTopN     = 5

	// BatchRequestDelay spaces candidate analysis in `run`; the dashboard uses a shorter one
	BatchRequestDelay       = 2 * time.Second
	InteractiveRequestDelay = 1 * time.Second
)

// Model defaults
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderCohere = "cohere"

	DefaultSummaryModel       = "gemini-2.0-flash"
	DefaultSummaryTemperature = 0.3
	DefaultSentimentModel     = "gemini-pro"
	DefaultEmbeddingModel     = "models/embedding-001"
)

// Storage and service defaults
const (
	BackendLocal  = "local"
	BackendChroma = "chroma"

	DefaultChromaHost       = "localhost"
	DefaultChromaPort       = 8000
	DefaultChromaCollection = "news_chunks"

	DefaultExtractWorkers = 5
	DefaultCacheTTL       = 24 * time.Hour
	DefaultBloomKey       = "newsdigest:seen"
	DefaultBloomTTL       = 7 * 24 * time.Hour

	DefaultS3Prefix      = "reports"
	DefaultReportTopic   = "newsdigest.reports"
	DefaultRunTopic      = "newsdigest.runs"
	DefaultConsumerGroup = "newsdigest"
	DefaultPort          = "8080"
	DefaultLogLevel      = "info"
)

// FeedPresets maps short names accepted in RSS_FEEDS to feed URLs
var FeedPresets = map[string]string{
	"techcrunch":  "https://techcrunch.com/feed/",
	"wired":       "https://www.wired.com/feed/rss",
	"arstechnica": "https://feeds.arstechnica.com/arstechnica/index",
	"cnn":         "https://rss.cnn.com/rss/edition.rss",
	"bbc":         "https://feeds.bbci.co.uk/news/rss.xml",
	"hn":          "https://hnrss.org/newest",
	"tr":          "https://www.technologyreview.com/feed/",
}
