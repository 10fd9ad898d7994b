package deduplication

import (
	"newsdigest/rssfeeds"
	"newsdigest/types"
)

// IdentityKey returns the key an article is deduplicated on: the link, else the title, else a
// hash of the content.
func IdentityKey(article *types.Article) string {
	if article.Link != "" {
		return article.Link
	}
	if article.Title != "" {
		return article.Title
	}
	return "hash:" + rssfeeds.GenerateID(article.Content)
}

// Deduplicate keeps the first article seen for every identity key. Output order is the order
// in which keys were first encountered.
func Deduplicate(articles []*types.Article) []*types.Article {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]*types.Article, 0, len(articles))

	for _, article := range articles {
		if article == nil {
			continue
		}
		key := IdentityKey(article)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, article)
	}

	return unique
}
