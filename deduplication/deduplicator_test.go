package deduplication

import (
	"testing"

	"newsdigest/logger"
	"newsdigest/types"
)

func TestIdentityKeyFallbacks(t *testing.T) {
	cases := []struct {
		name    string
		article types.Article
		want    string
	}{
		{"link wins", types.Article{Link: "https://a.example/1", Title: "T"}, "https://a.example/1"},
		{"title fallback", types.Article{Title: "Only a title"}, "Only a title"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IdentityKey(&c.article); got != c.want {
				t.Fatalf("IdentityKey = %q; want %q", got, c.want)
			}
		})
	}

	a := &types.Article{Content: "some body text"}
	b := &types.Article{Content: "some body text"}
	c := &types.Article{Content: "different body text"}
	if IdentityKey(a) != IdentityKey(b) {
		t.Fatal("content hash key should be stable")
	}
	if IdentityKey(a) == IdentityKey(c) {
		t.Fatal("different content should give different keys")
	}
}

func TestDeduplicateKeepsFirstSeenInOrder(t *testing.T) {
	logger.Discard()

	feedA := []*types.Article{
		{ID: "a1", Link: "https://x.example/1", Title: "One"},
		{ID: "a2", Link: "https://x.example/2", Title: "Two"},
		{ID: "a3", Title: "No link story"},
	}
	feedB := []*types.Article{
		{ID: "b1", Link: "https://x.example/2", Title: "Two (syndicated)"},
		{ID: "b2", Title: "No link story"},
		{ID: "b3", Link: "https://x.example/3", Title: "Three"},
		{ID: "b4", Content: "untitled body"},
		{ID: "b5", Content: "untitled body"},
	}

	got := Deduplicate(append(feedA, feedB...))

	want := []string{"a1", "a2", "a3", "b3", "b4"}
	if len(got) != len(want) {
		t.Fatalf("got %v; want %v", ids(got), want)
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("got %v; want %v", ids(got), want)
		}
	}

	keys := make(map[string]bool)
	for _, a := range got {
		k := IdentityKey(a)
		if keys[k] {
			t.Fatalf("duplicate identity key %q in output", k)
		}
		keys[k] = true
	}
}
