package selector

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
)

// KeywordStrategy keeps entries whose title or abstract matches any of its
// patterns, optionally restricted to a category allow-list.
type KeywordStrategy struct {
	patterns   []*regexp.Regexp
	categories map[string]bool
}

// NewKeywordStrategy compiles patterns case-insensitively. An empty category
// list allows every category.
func NewKeywordStrategy(patterns, categories []string) (*KeywordStrategy, error) {
	k := &KeywordStrategy{}
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("selector: invalid keyword %q: %w", p, err)
		}
		k.patterns = append(k.patterns, re)
	}
	if len(categories) > 0 {
		k.categories = make(map[string]bool, len(categories))
		for _, c := range categories {
			k.categories[strings.TrimSpace(c)] = true
		}
	}
	return k, nil
}

func (k *KeywordStrategy) Name() string { return "keyword" }

func (k *KeywordStrategy) Select(_ context.Context, entries []fetcher.Entry, limit int) ([]fetcher.Entry, error) {
	var out []fetcher.Entry
	for _, e := range entries {
		if len(out) >= limit {
			break
		}
		if k.Match(e) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Match reports whether an entry is relevant.
func (k *KeywordStrategy) Match(e fetcher.Entry) bool {
	if k.categories != nil && !k.categories[e.Category] {
		return false
	}
	text := e.Title + " " + e.Abstract
	for _, re := range k.patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
