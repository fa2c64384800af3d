package summarizer

import (
	"context"
	"time"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
)

// Digest is the outcome of one synthesis. Generated is false when Text is the
// deterministic fallback report, in which case FailureReason says why.
type Digest struct {
	Date          time.Time
	Text          string
	Generated     bool
	Candidates    []fetcher.Entry
	FailureReason string
}

// Summarizer turns the day's candidates into a digest. It always returns a
// usable digest.
type Summarizer interface {
	Summarize(ctx context.Context, candidates []fetcher.Entry) *Digest
}
