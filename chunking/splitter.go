package chunking

import (
	"fmt"
	"strings"

	"newsdigest/logger"
	"newsdigest/types"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"
)

// Separators are tried in order: paragraph, line, sentence, word, character
var Separators = []string{"\n\n", "\n", ". ", " ", ""}

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
	DefaultMinWords  = 20
)

// TextSplitter splits one text into pieces
type TextSplitter interface {
	SplitText(text string) ([]string, error)
}

// Splitter turns articles into chunks of at most ChunkSize characters
type Splitter struct {
	splitter TextSplitter
	minWords int
}

// NewSplitter builds a recursive character splitter. Zero values fall back to the defaults.
func NewSplitter(chunkSize, overlap, minWords int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = min(DefaultOverlap, chunkSize/5)
	}
	if minWords <= 0 {
		minWords = DefaultMinWords
	}

	rc := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(chunkSize),
		textsplitter.WithChunkOverlap(overlap),
		textsplitter.WithSeparators(Separators),
	)
	return &Splitter{splitter: rc, minWords: minWords}
}

// NewSplitterWith uses a custom TextSplitter
func NewSplitterWith(splitter TextSplitter, minWords int) *Splitter {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Splitter{splitter: splitter, minWords: minWords}
}

// Split chunks every article. Chunks with fewer than the minimum word count are dropped; an
// article that fails to split is logged and skipped.
func (s *Splitter) Split(articles []*types.Article) []types.Chunk {
	var chunks []types.Chunk
	for _, article := range articles {
		pieces, err := s.splitArticle(article)
		if err != nil {
			logger.Log.WithField("article", article.ID).Warnf("Error splitting document: %v", err)
			continue
		}
		for _, piece := range pieces {
			if WordCount(piece) < s.minWords {
				continue
			}
			chunks = append(chunks, types.Chunk{
				ID:       uuid.NewString(),
				Text:     piece,
				Metadata: metadataFor(article),
			})
		}
	}
	return chunks
}

func (s *Splitter) splitArticle(article *types.Article) (pieces []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("splitter panic: %v", r)
		}
	}()
	return s.splitter.SplitText(article.Text())
}

func metadataFor(article *types.Article) types.ChunkMetadata {
	return types.ChunkMetadata{
		Source:    article.Link,
		Link:      article.Link,
		Title:     article.Title,
		Published: article.Published,
		FeedURL:   article.FeedURL,
	}
}

// WordCount counts whitespace-separated words
func WordCount(s string) int {
	return len(strings.Fields(s))
}
