package vectorindex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"newsdigest/logger"
	"newsdigest/types"
)

const collectionsPath = "/api/v2/tenants/default_tenant/databases/default_database/collections"

// fakeChroma keeps one collection in memory and answers queries with fixed distances
type fakeChroma struct {
	mu        sync.Mutex
	deleted   bool
	ids       []string
	documents []string
	metadatas []map[string]string
	lastQuery map[string]any
}

func (f *fakeChroma) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE "+collectionsPath+"/news", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.deleted = true
		f.mu.Unlock()
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("POST "+collectionsPath, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "col-1", "name": "news"})
	})
	mux.HandleFunc("POST "+collectionsPath+"/col-1/add", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs        []string            `json:"ids"`
			Documents  []string            `json:"documents"`
			Metadatas  []map[string]string `json:"metadatas"`
			Embeddings [][]float32         `json:"embeddings"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode add: %v", err)
		}
		if len(body.Embeddings) != len(body.IDs) {
			t.Errorf("add without client-side embeddings")
		}
		f.mu.Lock()
		f.ids = append(f.ids, body.IDs...)
		f.documents = append(f.documents, body.Documents...)
		f.metadatas = append(f.metadatas, body.Metadatas...)
		f.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("GET "+collectionsPath+"/col-1/count", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		json.NewEncoder(w).Encode(len(f.ids))
	})
	mux.HandleFunc("POST "+collectionsPath+"/col-1/query", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		f.lastQuery = body

		// second stored document is closest
		order := []int{1, 0}
		dists := []float32{0.1, 0.6}
		resp := map[string]any{
			"ids":       [][]string{{f.ids[order[0]], f.ids[order[1]]}},
			"documents": [][]string{{f.documents[order[0]], f.documents[order[1]]}},
			"metadatas": [][]map[string]string{{f.metadatas[order[0]], f.metadatas[order[1]]}},
			"distances": [][]float32{dists},
		}
		json.NewEncoder(w).Encode(resp)
	})
	return mux
}

func TestChromaAddAndRetrieve(t *testing.T) {
	logger.Discard()
	ctx := context.Background()
	fake := &fakeChroma{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	idx, err := NewChroma(ctx, ChromaConfig{BaseURL: srv.URL, CollectionName: "news", Reset: true}, &keywordEmbedder{})
	if err != nil {
		t.Fatalf("NewChroma: %v", err)
	}
	defer idx.Close()
	if !fake.deleted {
		t.Fatalf("reset should delete the collection")
	}

	chunks := []types.Chunk{
		{ID: "a", Text: "oil prices climb", Metadata: types.ChunkMetadata{Link: "https://e.com/oil", Title: "Oil"}},
		{ID: "b", Text: "chip exports restricted", Metadata: types.ChunkMetadata{Link: "https://e.com/chip", Title: "Chips"}},
	}
	if err := idx.Add(ctx, chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := idx.Retrieve(ctx, "chip", 10)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "b" || hits[0].Metadata.Title != "Chips" || !strings.Contains(hits[0].Text, "chip") {
		t.Fatalf("unexpected top hit: %+v", hits[0])
	}
	if d := hits[0].Score - 0.9; d > 1e-6 || d < -1e-6 {
		t.Fatalf("score should be 1 - distance, got %v", hits[0].Score)
	}
	if n, ok := fake.lastQuery["n_results"].(float64); !ok || n != 2 {
		t.Fatalf("n_results should be clamped to the collection size, got %v", fake.lastQuery["n_results"])
	}
}

func TestChromaRetrieveEmptyCollection(t *testing.T) {
	logger.Discard()
	fake := &fakeChroma{}
	srv := httptest.NewServer(fake.handler(t))
	defer srv.Close()

	idx, err := NewChroma(context.Background(), ChromaConfig{BaseURL: srv.URL, CollectionName: "news"}, &keywordEmbedder{})
	if err != nil {
		t.Fatalf("NewChroma: %v", err)
	}
	hits, err := idx.Retrieve(context.Background(), "chip", 10)
	if err != nil || len(hits) != 0 {
		t.Fatalf("expected no hits, got %v, %v", hits, err)
	}
	if fake.lastQuery != nil {
		t.Fatalf("empty collection should not be queried")
	}
}

func TestChromaUnreachable(t *testing.T) {
	logger.Discard()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	if _, err := NewChroma(context.Background(), ChromaConfig{BaseURL: srv.URL, CollectionName: "news"}, &keywordEmbedder{}); err == nil {
		t.Fatalf("expected error for unreachable chroma")
	}
}
