package vectorindex

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"
)

// cohereBatchSize is the Embed API's per-request text limit
const cohereBatchSize = 96

// CohereEmbeddings uses the Cohere v2 Embed API
type CohereEmbeddings struct {
	client *cohereclient.Client
	model  string
}

func NewCohereEmbeddings(apiKey, model string) (*CohereEmbeddings, error) {
	return newCohereEmbeddings(apiKey, model, "")
}

// newCohereEmbeddings overrides the API base URL when baseURL is set
func newCohereEmbeddings(apiKey, model, baseURL string) (*CohereEmbeddings, error) {
	if apiKey == "" {
		return nil, errors.New("COHERE_API_KEY is required for cohere embeddings")
	}

	// HTTP/1.1 only; the embed endpoint has produced stream errors over h2
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	opts := []option.RequestOption{
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	}
	if baseURL != "" {
		opts = append(opts, cohereclient.WithBaseURL(baseURL))
	}
	client := cohereclient.NewClient(opts...)
	return &CohereEmbeddings{client: client, model: model}, nil
}

func (c *CohereEmbeddings) ModelName() string { return c.model }

func (c *CohereEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return c.embed(ctx, texts, cohere.EmbedInputTypeSearchDocument)
}

func (c *CohereEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	out, err := c.embed(ctx, []string{text}, cohere.EmbedInputTypeSearchQuery)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (c *CohereEmbeddings) embed(ctx context.Context, texts []string, inputType cohere.EmbedInputType) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += cohereBatchSize {
		end := min(start+cohereBatchSize, len(texts))
		batch, err := c.embedBatch(ctx, texts[start:end], inputType)
		if err != nil {
			return nil, err
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (c *CohereEmbeddings) embedBatch(ctx context.Context, texts []string, inputType cohere.EmbedInputType) ([][]float32, error) {
	resp, err := c.client.V2.Embed(ctx, &cohere.V2EmbedRequest{
		Texts:          texts,
		Model:          c.model,
		InputType:      inputType,
		EmbeddingTypes: []cohere.EmbeddingType{cohere.EmbeddingTypeFloat},
	})
	if err != nil {
		return nil, fmt.Errorf("cohere embed error: %w", err)
	}
	if resp == nil || resp.Embeddings == nil || resp.Embeddings.Float == nil {
		return nil, errors.New("cohere embed returned no float embeddings")
	}

	floats := resp.Embeddings.Float
	if len(floats) != len(texts) {
		return nil, errors.New("embedding count mismatch")
	}

	out := make([][]float32, len(floats))
	for i, vec := range floats {
		fv := make([]float32, len(vec))
		for j, v := range vec {
			fv[j] = float32(v)
		}
		out[i] = fv
	}
	return out, nil
}
