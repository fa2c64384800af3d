package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// maxListingBytes bounds how much of the listing page is read.
const maxListingBytes = 16 << 20

// ParseFunc turns a fetched document into entries.
type ParseFunc func(document string) ([]Entry, error)

// ListingFetcher downloads an arXiv listing page with a single GET and hands
// the body to a parser.
type ListingFetcher struct {
	client    *http.Client
	url       string
	userAgent string
	parse     ParseFunc
}

func NewListingFetcher(url, userAgent string, timeout time.Duration, parse ParseFunc) *ListingFetcher {
	return &ListingFetcher{
		client:    &http.Client{Timeout: timeout},
		url:       url,
		userAgent: userAgent,
		parse:     parse,
	}
}

func (f *ListingFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxListingBytes))
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to read response: %w", err)
	}

	entries, err := f.parse(string(body))
	if err != nil {
		return nil, fmt.Errorf("arxiv: failed to parse listing: %w", err)
	}

	log.Debug().Str("url", f.url).Int("bytes", len(body)).Int("entries", len(entries)).Msg("listing harvested")
	return entries, nil
}
