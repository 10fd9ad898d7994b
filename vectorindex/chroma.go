package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"newsdigest/logger"
	"newsdigest/types"
)

// Chroma stores chunks in a Chroma v2 collection. Embeddings are computed client-side.
type Chroma struct {
	baseURL        string
	tenant         string
	database       string
	collectionName string
	collectionID   string
	httpClient     *http.Client
	embedder       Embedder
}

// ChromaConfig holds configuration for Chroma connection
type ChromaConfig struct {
	Host           string
	Port           int
	CollectionName string
	// Reset drops the collection before use so each run starts empty
	Reset bool
	// BaseURL overrides Host and Port, e.g. for a test server
	BaseURL string
}

type chromaQueryResults struct {
	IDs       [][]string            `json:"ids"`
	Distances [][]float32           `json:"distances"`
	Metadatas [][]map[string]string `json:"metadatas"`
	Documents [][]string            `json:"documents"`
}

// NewChroma connects to Chroma and gets or creates the collection
func NewChroma(ctx context.Context, cfg ChromaConfig, embedder Embedder) (*Chroma, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}

	c := &Chroma{
		baseURL:        baseURL + "/api/v2",
		tenant:         "default_tenant",
		database:       "default_database",
		collectionName: cfg.CollectionName,
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		embedder:       embedder,
	}

	if cfg.Reset {
		if err := c.deleteCollection(ctx); err != nil {
			return nil, err
		}
	}

	id, err := c.getOrCreateCollection(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create collection: %w", err)
	}
	c.collectionID = id
	return c, nil
}

func (c *Chroma) collectionsURL() string {
	return fmt.Sprintf("%s/tenants/%s/databases/%s/collections", c.baseURL, c.tenant, c.database)
}

func (c *Chroma) collectionURL() string {
	return c.collectionsURL() + "/" + c.collectionID
}

// do sends a JSON request and decodes a JSON response into out when out is non-nil
func (c *Chroma) do(ctx context.Context, method, url string, payload, out any, okStatus ...int) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	ok := resp.StatusCode == http.StatusOK
	for _, s := range okStatus {
		ok = ok || resp.StatusCode == s
	}
	if !ok {
		msg, _ := io.ReadAll(resp.Body)
		return &chromaStatusError{status: resp.StatusCode, body: string(msg)}
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type chromaStatusError struct {
	status int
	body   string
}

func (e *chromaStatusError) Error() string {
	return fmt.Sprintf("chroma returned status %d: %s", e.status, e.body)
}

func (c *Chroma) deleteCollection(ctx context.Context) error {
	err := c.do(ctx, http.MethodDelete, c.collectionsURL()+"/"+c.collectionName, nil, nil, http.StatusNotFound)
	if err != nil {
		// Chroma reports a missing collection as 400 or 404 depending on version
		var se *chromaStatusError
		if errors.As(err, &se) && se.status == http.StatusBadRequest {
			return nil
		}
		return fmt.Errorf("failed to reset collection: %w", err)
	}
	logger.Log.Debugf("Reset collection: %s", c.collectionName)
	return nil
}

func (c *Chroma) getOrCreateCollection(ctx context.Context) (string, error) {
	payload := map[string]any{
		"name": c.collectionName,
		"metadata": map[string]any{
			"description": "news digest article chunks",
			"hnsw:space":  "cosine",
		},
		"get_or_create": true,
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, c.collectionsURL(), payload, &result, http.StatusCreated); err != nil {
		return "", err
	}
	if result.ID == "" {
		return "", errors.New("chroma returned no collection id")
	}
	logger.Log.Debugf("Using collection %s (%s)", c.collectionName, result.ID)
	return result.ID, nil
}

// Add embeds and uploads chunks in one request
func (c *Chroma) Add(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	ids := make([]string, len(chunks))
	documents := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	for i, ch := range chunks {
		ids[i] = ch.ID
		documents[i] = ch.Text
		metadatas[i] = metadataToMap(ch.Metadata)
	}

	embs, err := c.embedder.EmbedDocuments(ctx, documents)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}

	payload := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embs,
	}
	if err := c.do(ctx, http.MethodPost, c.collectionURL()+"/add", payload, nil, http.StatusCreated); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}

	logger.Log.Debugf("Added %d documents to collection", len(chunks))
	return nil
}

// Persist is a no-op; Chroma stores data on add
func (c *Chroma) Persist(context.Context) error { return nil }

// Retrieve queries the collection. Chroma returns cosine distance, reported here as 1 - distance.
func (c *Chroma) Retrieve(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	count, err := c.Count(ctx)
	if err != nil {
		return nil, err
	}
	k = clampK(k, count)
	if k == 0 {
		return []types.ScoredChunk{}, nil
	}

	qv, err := c.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	payload := map[string]any{
		"query_embeddings": [][]float32{qv},
		"n_results":        k,
		"include":          []string{"metadatas", "documents", "distances"},
	}
	var result chromaQueryResults
	if err := c.do(ctx, http.MethodPost, c.collectionURL()+"/query", payload, &result); err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}
	if len(result.IDs) == 0 {
		return []types.ScoredChunk{}, nil
	}

	hits := make([]types.ScoredChunk, 0, len(result.IDs[0]))
	for i, id := range result.IDs[0] {
		hit := types.ScoredChunk{Chunk: types.Chunk{ID: id}}
		if len(result.Documents) > 0 && i < len(result.Documents[0]) {
			hit.Text = result.Documents[0][i]
		}
		if len(result.Metadatas) > 0 && i < len(result.Metadatas[0]) {
			hit.Metadata = metadataFromMap(result.Metadatas[0][i])
		}
		if len(result.Distances) > 0 && i < len(result.Distances[0]) {
			hit.Score = 1 - result.Distances[0][i]
		}
		hits = append(hits, hit)
	}
	rank(hits)
	return hits, nil
}

// Count returns the number of documents in the collection
func (c *Chroma) Count(ctx context.Context) (int, error) {
	var count int
	if err := c.do(ctx, http.MethodGet, c.collectionURL()+"/count", nil, &count); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// Close releases idle connections
func (c *Chroma) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func metadataToMap(m types.ChunkMetadata) map[string]string {
	return map[string]string{
		"source":    m.Source,
		"link":      m.Link,
		"title":     m.Title,
		"published": m.Published,
		"feed_url":  m.FeedURL,
	}
}

func metadataFromMap(m map[string]string) types.ChunkMetadata {
	return types.ChunkMetadata{
		Source:    m["source"],
		Link:      m["link"],
		Title:     m["title"],
		Published: m["published"],
		FeedURL:   m["feed_url"],
	}
}
