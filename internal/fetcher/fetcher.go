package fetcher

import (
	"context"
	"fmt"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

// Entry is one listing item as harvested from the source page.
// Missing fields are left empty; Link is always populated.
type Entry struct {
	ID          string
	Title       string
	AuthorsRaw  string
	FirstAuthor string
	Abstract    string
	Link        string
	Category    string
	Section     string
}

// Fetcher retrieves the current listing and returns its entries in page order.
type Fetcher interface {
	Fetch(ctx context.Context) ([]Entry, error)
}

// New creates a fetcher based on the configuration.
func New(cfg *config.Config) (Fetcher, error) {
	p := &Parser{
		BaseURL:  cfg.Source.BaseURL,
		Archive:  cfg.Source.Archive,
		Sections: cfg.Source.Sections,
	}
	switch cfg.Source.Format {
	case "html":
		return NewListingFetcher(cfg.Source.URL, cfg.Source.UserAgent, cfg.Source.Timeout, p.ParseHTML), nil
	case "rss":
		return NewListingFetcher(cfg.Source.URL, cfg.Source.UserAgent, cfg.Source.Timeout, p.ParseFeed), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, cfg.Source.Format)
	}
}

// ErrUnsupportedFormat is returned when the source format has no parser.
var ErrUnsupportedFormat = fmt.Errorf("unsupported source format")
