package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"newsdigest/logger"
	"newsdigest/types"
)

const snapshotFile = "index.json"

// Local is an in-process index. When dir is set, Persist writes a JSON snapshot there and
// OpenLocal can load it back.
type Local struct {
	mu       sync.RWMutex
	dir      string
	embedder Embedder
	entries  []types.IndexedChunk
}

type snapshot struct {
	Model   string               `json:"model"`
	SavedAt time.Time            `json:"saved_at"`
	Entries []types.IndexedChunk `json:"entries"`
}

// OpenLocal prepares dir and, unless reset is set, loads an existing snapshot built with the
// same embedding model.
func OpenLocal(dir string, embedder Embedder, reset bool) (*Local, error) {
	l := &Local{dir: dir, embedder: embedder}
	if dir == "" {
		return l, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, snapshotFile)
	if reset {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to reset index: %w", err)
		}
		return l, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read index snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode index snapshot: %w", err)
	}
	if snap.Model != embedder.ModelName() {
		logger.Log.Warnf("Ignoring index snapshot built with %q (current model %q)", snap.Model, embedder.ModelName())
		return l, nil
	}
	l.entries = snap.Entries
	logger.Log.Infof("Loaded %d indexed chunks from %s", len(l.entries), path)
	return l, nil
}

// Add embeds all chunks in one batched call
func (l *Local) Add(ctx context.Context, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embs, err := l.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embs) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(embs), len(chunks))
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for i, c := range chunks {
		l.entries = append(l.entries, types.IndexedChunk{Chunk: c, Embedding: embs[i]})
	}
	logger.Log.Debugf("Added %d chunks to local index", len(chunks))
	return nil
}

// Persist writes the snapshot atomically. Without a directory it does nothing.
func (l *Local) Persist(_ context.Context) error {
	if l.dir == "" {
		return nil
	}

	l.mu.RLock()
	snap := snapshot{Model: l.embedder.ModelName(), SavedAt: time.Now().UTC(), Entries: l.entries}
	data, err := json.Marshal(snap)
	l.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	tmp, err := os.CreateTemp(l.dir, snapshotFile+".*")
	if err != nil {
		return fmt.Errorf("failed to persist index: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist index: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, snapshotFile)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to persist index: %w", err)
	}
	return nil
}

// Retrieve ranks all stored chunks by cosine similarity to the query
func (l *Local) Retrieve(ctx context.Context, query string, k int) ([]types.ScoredChunk, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	k = clampK(k, len(l.entries))
	if k == 0 {
		return []types.ScoredChunk{}, nil
	}

	qv, err := l.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	hits := make([]types.ScoredChunk, len(l.entries))
	for i, e := range l.entries {
		hits[i] = types.ScoredChunk{Chunk: e.Chunk, Score: CosineSimilarity(qv, e.Embedding)}
	}
	rank(hits)
	return hits[:k], nil
}

// Count returns the number of stored chunks
func (l *Local) Count(_ context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries), nil
}

// Close releases nothing; the snapshot is only written by Persist
func (l *Local) Close() error { return nil }
