package vectorindex

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Gemini accepts at most this many contents per batch request
const geminiBatchSize = 100

// GeminiEmbeddings uses the Generative Language embedding models
type GeminiEmbeddings struct {
	client *genai.Client
	model  string
}

func NewGeminiEmbeddings(ctx context.Context, apiKey, model string) (*GeminiEmbeddings, error) {
	if apiKey == "" {
		return nil, errors.New("GOOGLE_API_KEY is required for gemini embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiEmbeddings{client: client, model: model}, nil
}

func (g *GeminiEmbeddings) ModelName() string { return g.model }

func (g *GeminiEmbeddings) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += geminiBatchSize {
		end := min(start+geminiBatchSize, len(texts))

		batch := em.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		res, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini embed error: %w", err)
		}
		if len(res.Embeddings) != end-start {
			return nil, errors.New("embedding count mismatch")
		}
		for _, e := range res.Embeddings {
			out = append(out, e.Values)
		}
	}
	return out, nil
}

func (g *GeminiEmbeddings) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	em := g.client.EmbeddingModel(g.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embed error: %w", err)
	}
	if res.Embedding == nil {
		return nil, errors.New("gemini embed returned no embedding")
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying client connection
func (g *GeminiEmbeddings) Close() error {
	return g.client.Close()
}
