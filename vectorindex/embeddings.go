package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"newsdigest/config"
	"newsdigest/logger"
)

// Embedder turns text into vectors. Documents and queries may be embedded differently.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// NewEmbedder builds the embeddings provider selected by EMBEDDING_PROVIDER
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	model := cfg.EmbeddingModelName()

	var (
		e   Embedder
		err error
	)
	switch cfg.EmbeddingProvider {
	case config.ProviderGemini, "":
		e, err = NewGeminiEmbeddings(ctx, cfg.GoogleAPIKey, model)
	case config.ProviderCohere:
		e, err = NewCohereEmbeddings(cfg.CohereAPIKey, model)
	case config.ProviderOpenAI:
		e, err = NewOpenAIEmbeddings(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, model)
	default:
		err = fmt.Errorf("unknown embeddings provider %q", cfg.EmbeddingProvider)
	}
	if err != nil {
		return nil, err
	}

	logger.Log.Infof("Using embeddings provider: %s", e.ModelName())
	return e, nil
}

const defaultOpenAIBaseURL = "https://api.openai.com/v1"

// OpenAIEmbeddings calls POST {base}/embeddings with {"input": [...], "model": "..."}
type OpenAIEmbeddings struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

func NewOpenAIEmbeddings(apiKey, baseURL, model string) (*OpenAIEmbeddings, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required for openai embeddings")
	}
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	return &OpenAIEmbeddings{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/embeddings",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (o *OpenAIEmbeddings) ModelName() string { return o.model }

func (o *OpenAIEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return o.embed(ctx, texts)
}

func (o *OpenAIEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := o.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (o *OpenAIEmbeddings) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	b, err := json.Marshal(map[string]any{
		"input": texts,
		"model": o.model,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("openai embeddings error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(texts))
	for _, d := range parsed.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
