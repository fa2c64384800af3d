package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/publisher"
	"github.com/ryosukesatoh/arxiv-digest/internal/summarizer"
)

const (
	noticeNoPapers   = "No new papers found today."
	noticeSourceDown = "No new papers found today (source unavailable)."
)

// Selector narrows the harvested entries to the day's candidates.
type Selector interface {
	Select(ctx context.Context, entries []fetcher.Entry, limit int) []fetcher.Entry
}

// Runner orchestrates the fetch -> select -> summarize -> publish pipeline.
type Runner struct {
	title      string
	limit      int
	fetcher    fetcher.Fetcher
	selector   Selector
	summarizer summarizer.Summarizer
	publisher  publisher.Publisher
	now        func() time.Time
}

func New(title string, limit int, f fetcher.Fetcher, sel Selector, s summarizer.Summarizer, pub publisher.Publisher) *Runner {
	return &Runner{
		title:      title,
		limit:      limit,
		fetcher:    f,
		selector:   sel,
		summarizer: s,
		publisher:  pub,
		now:        time.Now,
	}
}

// Run executes the full pipeline once. Selection and synthesis degrade on
// their own; only an unavailable source or a failed delivery is returned.
func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	log.Info().Int("limit", r.limit).Msg("starting pipeline")

	// Step 1: Fetch the listing
	entries, err := r.fetcher.Fetch(ctx)
	if err != nil {
		log.Error().Err(err).Str("stage", "fetch").Msg("listing unavailable")
		if perr := r.publish(ctx, r.withHeader(r.now(), noticeSourceDown)); perr != nil {
			log.Warn().Err(perr).Msg("could not publish notice")
		}
		return fmt.Errorf("runner: fetch failed: %w", err)
	}
	log.Info().Int("entries", len(entries)).Msg("fetched listing")

	if len(entries) == 0 {
		return r.publish(ctx, r.withHeader(r.now(), noticeNoPapers))
	}

	// Step 2: Select candidates
	candidates := r.selector.Select(ctx, entries, r.limit)

	// Step 3: Summarize
	digest := r.summarizer.Summarize(ctx, candidates)
	if !digest.Generated {
		log.Warn().Str("reason", digest.FailureReason).Msg("publishing fallback report")
	}

	// Step 4: Publish
	if err := r.publish(ctx, r.withHeader(digest.Date, digest.Text)); err != nil {
		return err
	}

	log.Info().Int("candidates", len(candidates)).Bool("generated", digest.Generated).Dur("elapsed", time.Since(start)).Msg("pipeline completed")
	return nil
}

func (r *Runner) publish(ctx context.Context, text string) error {
	if err := r.publisher.Publish(ctx, text); err != nil {
		return fmt.Errorf("runner: publish failed: %w", err)
	}
	return nil
}

// withHeader prefixes the digest title and date as a Markdown heading.
func (r *Runner) withHeader(date time.Time, body string) string {
	if r.title == "" {
		return body
	}
	return fmt.Sprintf("### %s (%s)\n\n%s", r.title, date.Format("02 Jan 2006"), body)
}
