package types

// ChunkMetadata is inherited from the source article
type ChunkMetadata struct {
	Source    string `json:"source"`
	Link      string `json:"link"`
	Title     string `json:"title"`
	Published string `json:"published"`
	FeedURL   string `json:"feed_url"`
}

// Chunk is a bounded text segment of one article, the unit of embedding and retrieval
type Chunk struct {
	ID       string        `json:"id"`
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// ScoredChunk is a retrieval hit; Score is cosine similarity (higher is closer)
type ScoredChunk struct {
	Chunk
	Score float32 `json:"score"`
}

// IndexedChunk is a chunk with its embedding, as held by the vector index
type IndexedChunk struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}
