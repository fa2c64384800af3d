package selector

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
)

// Strategy proposes a subset of entries, at most limit long, in input order.
type Strategy interface {
	Name() string
	Select(ctx context.Context, entries []fetcher.Entry, limit int) ([]fetcher.Entry, error)
}

// Tier pairs a strategy with the predicate its result must satisfy.
type Tier struct {
	Strategy Strategy
	Accept   func(selected []fetcher.Entry, limit int) bool
}

// Selector walks its tiers in order and returns the first accepted result.
// Positional truncation always terminates the chain.
type Selector struct {
	tiers []Tier
}

func New(tiers ...Tier) *Selector {
	return &Selector{tiers: tiers}
}

// FromConfig builds the tier chain starting at the configured strategy.
func FromConfig(cfg *config.Config, gen generator.Generator) (*Selector, error) {
	keyword, err := NewKeywordStrategy(cfg.Selector.Keywords, cfg.Selector.Categories)
	if err != nil {
		return nil, err
	}

	var tiers []Tier
	switch cfg.Selector.Strategy {
	case "model":
		m := cfg.Selector.Model
		model := &ModelStrategy{
			Generator: gen,
			Interests: cfg.Selector.Interests,
			Request: generator.Request{
				MaxTokens:   m.MaxTokens,
				ContextSize: m.ContextSize,
				Temperature: m.Temperature,
				Seed:        cfg.Generator.Seed,
				Timeout:     m.Timeout,
			},
		}
		tiers = append(tiers, Tier{Strategy: model, Accept: AtLeast(cfg.Selector.MinIndices)})
		fallthrough
	case "keyword":
		tiers = append(tiers, Tier{Strategy: keyword, Accept: NonEmpty})
	}
	return New(tiers...), nil
}

// Select narrows entries to at most limit candidates. Inputs already within
// the limit are returned unchanged. Strategy failures are logged and never
// surfaced.
func (s *Selector) Select(ctx context.Context, entries []fetcher.Entry, limit int) []fetcher.Entry {
	if len(entries) <= limit {
		return entries
	}

	for _, tier := range s.tiers {
		name := tier.Strategy.Name()
		selected, err := tier.Strategy.Select(ctx, entries, limit)
		if err != nil {
			log.Warn().Err(err).Str("tier", name).Msg("selection failed, using fallback")
			continue
		}
		if tier.Accept != nil && !tier.Accept(selected, limit) {
			log.Warn().Str("tier", name).Int("count", len(selected)).Msg("selection rejected, using fallback")
			continue
		}
		log.Info().Str("tier", name).Int("count", len(selected)).Int("of", len(entries)).Msg("candidates selected")
		return selected
	}

	selected, _ := Truncate{}.Select(ctx, entries, limit)
	log.Info().Str("tier", Truncate{}.Name()).Int("count", len(selected)).Int("of", len(entries)).Msg("candidates selected")
	return selected
}

// NonEmpty accepts any result with at least one entry.
func NonEmpty(selected []fetcher.Entry, _ int) bool {
	return len(selected) > 0
}

// AtLeast accepts results with at least n entries, or limit entries when the
// limit itself is smaller.
func AtLeast(n int) func([]fetcher.Entry, int) bool {
	return func(selected []fetcher.Entry, limit int) bool {
		return len(selected) > 0 && len(selected) >= min(n, limit)
	}
}

// Truncate keeps the first limit entries.
type Truncate struct{}

func (Truncate) Name() string { return "positional" }

func (Truncate) Select(_ context.Context, entries []fetcher.Entry, limit int) ([]fetcher.Entry, error) {
	if limit < 0 {
		limit = 0
	}
	if len(entries) <= limit {
		return entries, nil
	}
	return entries[:limit], nil
}
