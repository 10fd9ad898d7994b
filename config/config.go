package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration. It is built once by Load and passed explicitly to
// every component; per-run overrides go through Clone.
type Config struct {
	// Sources and interests
	Feeds       []string
	Keywords    []string
	RecentHours int // loaded and reported, not applied as a filter

	// Fetching
	FetchTimeout    time.Duration
	ExtractFullText bool
	ExtractWorkers  int

	// Chunking
	ChunkSize     int
	ChunkOverlap  int
	MinChunkWords int

	// Retrieval and analysis
	VectorBackend      string
	DBDir              string
	RetrievalK         int
	MaxArticles        int
	TrendTopN          int
	RequestDelay       time.Duration
	RequestDelaySet    bool // false when REQUEST_DELAY came from the default
	ChromaHost         string
	ChromaPort         int
	ChromaCollection   string
	EmbeddingProvider  string
	EmbeddingModel     string
	LLMProvider        string
	SummaryModel       string
	SummaryTemperature float32
	SentimentModel     string

	// Credentials
	GoogleAPIKey  string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	CohereAPIKey  string

	// Redis (generation cache and seen filter)
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	SkipSeen      bool
	BloomKey      string
	BloomTTL      time.Duration

	// Report sinks
	S3Bucket       string
	S3Prefix       string
	S3Region       string
	S3Profile      string
	S3UsePathStyle bool
	DatabaseURL    string
	KafkaBrokers   []string
	ReportTopic    string
	RunTopic       string
	ConsumerGroup  string

	// Serve mode
	Port     string
	Schedule string

	// Logging
	LogLevel string
	LogFile  string
}

// feedsFile is the YAML layout accepted by FEEDS_FILE
//
//	feeds:
//	  - name: techcrunch
//	    url: https://techcrunch.com/feed/
//	  - https://www.wired.com/feed/rss
type feedsFile struct {
	Feeds []feedEntry `yaml:"feeds"`
}

type feedEntry struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// UnmarshalYAML accepts either a bare URL or a {name, url} mapping
func (f *feedEntry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		f.URL = node.Value
		return nil
	}
	type plain feedEntry
	return node.Decode((*plain)(f))
}

// Load reads .env (if present), the optional YAML config file and the environment.
// Environment variables override file values; both override defaults.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
	}

	cfg := &Config{
		Feeds:       listValue(v, "rss_feeds"),
		Keywords:    listValue(v, "user_keywords"),
		RecentHours: v.GetInt("recent_hours"),

		FetchTimeout:    durationValue(v, "fetch_timeout"),
		ExtractFullText: v.GetBool("extract_full_text"),
		ExtractWorkers:  v.GetInt("extract_workers"),

		ChunkSize:     v.GetInt("chunk_size"),
		ChunkOverlap:  v.GetInt("chunk_overlap"),
		MinChunkWords: v.GetInt("min_chunk_words"),

		VectorBackend:      strings.ToLower(v.GetString("vector_backend")),
		DBDir:              v.GetString("db_dir"),
		RetrievalK:         v.GetInt("retrieval_k"),
		MaxArticles:        v.GetInt("max_articles"),
		TrendTopN:          v.GetInt("trend_top_n"),
		RequestDelay:       durationValue(v, "request_delay"),
		RequestDelaySet:    os.Getenv("REQUEST_DELAY") != "" || v.InConfig("request_delay"),
		ChromaHost:         v.GetString("chroma_host"),
		ChromaPort:         v.GetInt("chroma_port"),
		ChromaCollection:   v.GetString("chroma_collection"),
		EmbeddingProvider:  strings.ToLower(v.GetString("embedding_provider")),
		EmbeddingModel:     v.GetString("embedding_model"),
		LLMProvider:        strings.ToLower(v.GetString("llm_provider")),
		SummaryModel:       v.GetString("summary_model"),
		SummaryTemperature: float32(v.GetFloat64("summary_temperature")),
		SentimentModel:     v.GetString("sentiment_model"),

		GoogleAPIKey:  strings.TrimSpace(v.GetString("google_api_key")),
		OpenAIAPIKey:  strings.TrimSpace(v.GetString("openai_api_key")),
		OpenAIBaseURL: v.GetString("openai_base_url"),
		CohereAPIKey:  strings.TrimSpace(v.GetString("cohere_api_key")),

		RedisAddr:     v.GetString("redis_addr"),
		RedisPassword: v.GetString("redis_pass"),
		RedisDB:       v.GetInt("redis_db"),
		CacheTTL:      durationValue(v, "cache_ttl"),
		SkipSeen:      v.GetBool("skip_seen"),
		BloomKey:      v.GetString("bloom_key"),
		BloomTTL:      durationValue(v, "bloom_ttl"),

		S3Bucket:       strings.TrimSpace(v.GetString("s3_bucket")),
		S3Prefix:       v.GetString("s3_prefix"),
		S3Region:       v.GetString("s3_region"),
		S3Profile:      v.GetString("s3_profile"),
		S3UsePathStyle: v.GetBool("s3_use_path_style"),
		DatabaseURL:    v.GetString("database_url"),
		KafkaBrokers:   listValue(v, "kafka_brokers"),
		ReportTopic:    v.GetString("kafka_report_topic"),
		RunTopic:       v.GetString("kafka_run_topic"),
		ConsumerGroup:  v.GetString("kafka_group_id"),

		Port:     v.GetString("port"),
		Schedule: v.GetString("schedule"),

		LogLevel: v.GetString("log_level"),
		LogFile:  v.GetString("log_file"),
	}

	if path := v.GetString("feeds_file"); path != "" {
		feeds, err := LoadFeeds(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load feeds file: %w", err)
		}
		cfg.Feeds = feeds
	}
	cfg.Feeds = ResolveFeeds(cfg.Feeds)

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("rss_feeds", DefaultFeeds)
	v.SetDefault("user_keywords", DefaultKeywords)
	v.SetDefault("recent_hours", DefaultRecentHours)

	v.SetDefault("fetch_timeout", DefaultFetchTimeout)
	v.SetDefault("extract_full_text", false)
	v.SetDefault("extract_workers", DefaultExtractWorkers)

	v.SetDefault("chunk_size", DefaultChunkSize)
	v.SetDefault("chunk_overlap", DefaultChunkOverlap)
	v.SetDefault("min_chunk_words", DefaultMinChunkWords)

	v.SetDefault("vector_backend", BackendLocal)
	v.SetDefault("db_dir", DefaultDBDir)
	v.SetDefault("retrieval_k", DefaultRetrievalK)
	v.SetDefault("max_articles", DefaultMaxArticles)
	v.SetDefault("trend_top_n", DefaultTrendTopN)
	v.SetDefault("request_delay", BatchRequestDelay)
	v.SetDefault("chroma_host", DefaultChromaHost)
	v.SetDefault("chroma_port", DefaultChromaPort)
	v.SetDefault("chroma_collection", DefaultChromaCollection)
	v.SetDefault("embedding_provider", ProviderGemini)
	v.SetDefault("embedding_model", "")
	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("summary_model", DefaultSummaryModel)
	v.SetDefault("summary_temperature", DefaultSummaryTemperature)
	v.SetDefault("sentiment_model", DefaultSentimentModel)

	v.SetDefault("cache_ttl", DefaultCacheTTL)
	v.SetDefault("bloom_key", DefaultBloomKey)
	v.SetDefault("bloom_ttl", DefaultBloomTTL)

	v.SetDefault("s3_prefix", DefaultS3Prefix)
	v.SetDefault("kafka_report_topic", DefaultReportTopic)
	v.SetDefault("kafka_run_topic", DefaultRunTopic)
	v.SetDefault("kafka_group_id", DefaultConsumerGroup)

	v.SetDefault("port", DefaultPort)
	v.SetDefault("log_level", DefaultLogLevel)
}

// LoadFeeds reads a feed list from a YAML file
func LoadFeeds(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var parsed feedsFile
	if err := yaml.NewDecoder(f).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	feeds := make([]string, 0, len(parsed.Feeds))
	for _, entry := range parsed.Feeds {
		if u := strings.TrimSpace(entry.URL); u != "" {
			feeds = append(feeds, u)
		}
	}
	return feeds, nil
}

// listValue reads a list option. Environment values are comma-separated so that keywords
// containing spaces survive; file values may be real YAML lists.
func listValue(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case string:
		raw = strings.Split(val, ",")
	default:
		raw = v.GetStringSlice(key)
	}
	return SplitList(raw)
}

// SplitList trims entries and drops empty ones. Entries may themselves contain commas or
// newlines, which are treated as separators.
func SplitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == '\n' }) {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// durationValue accepts Go duration strings ("10s") or a bare number of seconds ("10")
func durationValue(v *viper.Viper, key string) time.Duration {
	if s, ok := v.Get(key).(string); ok {
		s = strings.TrimSpace(s)
		if secs, err := strconv.ParseFloat(s, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return v.GetDuration(key)
}

// Validate checks that the configuration can drive a run
func (c *Config) Validate() error {
	var errs []error

	if len(c.Feeds) == 0 {
		errs = append(errs, errors.New("RSS_FEEDS must list at least one feed"))
	}
	if len(c.Keywords) == 0 {
		errs = append(errs, errors.New("USER_KEYWORDS must list at least one keyword"))
	}
	if c.ChunkSize <= 0 {
		errs = append(errs, errors.New("CHUNK_SIZE must be positive"))
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		errs = append(errs, errors.New("CHUNK_OVERLAP must be between 0 and CHUNK_SIZE"))
	}
	if c.MinChunkWords <= 0 {
		errs = append(errs, errors.New("MIN_CHUNK_WORDS must be positive"))
	}
	if c.RetrievalK <= 0 || c.MaxArticles <= 0 {
		errs = append(errs, errors.New("RETRIEVAL_K and MAX_ARTICLES must be positive"))
	}
	if c.RecentHours <= 0 {
		errs = append(errs, errors.New("RECENT_HOURS must be positive"))
	}
	if c.FetchTimeout <= 0 {
		errs = append(errs, errors.New("FETCH_TIMEOUT must be positive"))
	}
	if c.RequestDelay < 0 {
		errs = append(errs, errors.New("REQUEST_DELAY cannot be negative"))
	}

	switch c.VectorBackend {
	case BackendLocal, BackendChroma:
	default:
		errs = append(errs, fmt.Errorf("unknown VECTOR_BACKEND %q", c.VectorBackend))
	}

	switch c.LLMProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for the gemini provider"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}

	switch c.EmbeddingProvider {
	case ProviderGemini:
		if c.GoogleAPIKey == "" {
			errs = append(errs, errors.New("GOOGLE_API_KEY is required for gemini embeddings"))
		}
	case ProviderCohere:
		if c.CohereAPIKey == "" {
			errs = append(errs, errors.New("COHERE_API_KEY is required for cohere embeddings"))
		}
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai embeddings"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown EMBEDDING_PROVIDER %q", c.EmbeddingProvider))
	}

	return errors.Join(errs...)
}

// Clone returns a deep copy that can be modified for a single run
func (c *Config) Clone() *Config {
	cp := *c
	cp.Feeds = append([]string(nil), c.Feeds...)
	cp.Keywords = append([]string(nil), c.Keywords...)
	cp.KafkaBrokers = append([]string(nil), c.KafkaBrokers...)
	return &cp
}

// WithOverrides returns a copy with non-empty feed and keyword lists replaced
func (c *Config) WithOverrides(feeds, keywords []string) *Config {
	cp := c.Clone()
	if f := SplitList(feeds); len(f) > 0 {
		cp.Feeds = f
	}
	if k := SplitList(keywords); len(k) > 0 {
		cp.Keywords = k
	}
	return cp
}

// ResolveFeeds replaces preset names with their URLs; anything else is kept as given
func ResolveFeeds(feeds []string) []string {
	out := make([]string, len(feeds))
	for i, f := range feeds {
		if u, ok := FeedPresets[strings.ToLower(f)]; ok {
			f = u
		}
		out[i] = f
	}
	return out
}

// ValidateFeeds checks that every feed is an absolute http(s) URL
func ValidateFeeds(feeds []string) error {
	var errs []error
	for _, f := range feeds {
		u, err := url.Parse(f)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid feed URL %q", f))
		}
	}
	return errors.Join(errs...)
}

// EmbeddingModelName returns the configured embedding model or the provider default
func (c *Config) EmbeddingModelName() string {
	if c.EmbeddingModel != "" {
		return c.EmbeddingModel
	}
	switch c.EmbeddingProvider {
	case ProviderCohere:
		return "embed-english-v3.0"
	case ProviderOpenAI:
		return "text-embedding-3-small"
	default:
		return DefaultEmbeddingModel
	}
}
