package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"newsdigest/types"
)

// Index stores embedded chunks for one run and answers similarity queries
type Index interface {
	// Add embeds and stores chunks
	Add(ctx context.Context, chunks []types.Chunk) error
	// Persist flushes the index to durable storage; a no-op for ephemeral or remote stores
	Persist(ctx context.Context) error
	// Retrieve returns up to k chunks ranked by descending similarity to query.
	// k is clamped to the number of stored chunks.
	Retrieve(ctx context.Context, query string, k int) ([]types.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Close() error
}

// Options selects and configures a backend
type Options struct {
	Backend string // "local" or "chroma"

	// Local backend: directory for index.json; empty means in-memory only
	Dir string
	// Reset discards previously persisted state before the run
	Reset bool

	ChromaHost       string
	ChromaPort       int
	ChromaCollection string
}

// New constructs the configured backend. Any error here is fatal to a run.
func New(ctx context.Context, opts Options, embedder Embedder) (Index, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embeddings provider not configured")
	}

	switch opts.Backend {
	case "", "local":
		return OpenLocal(opts.Dir, embedder, opts.Reset)
	case "chroma":
		return NewChroma(ctx, ChromaConfig{
			Host:           opts.ChromaHost,
			Port:           opts.ChromaPort,
			CollectionName: opts.ChromaCollection,
			Reset:          opts.Reset,
		}, embedder)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", opts.Backend)
	}
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0 when either is a zero
// vector or the lengths differ.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// clampK bounds k to [0, available]
func clampK(k, available int) int {
	if k <= 0 {
		return 0
	}
	return min(k, available)
}

// rank sorts hits best-first; equal scores keep insertion order
func rank(hits []types.ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
}
