package summarizer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ryosukesatoh/arxiv-digest/internal/fetcher"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
)

const defaultSystemPrompt = "You are an expert astrophysicist writing a daily technical briefing for researchers " +
	"working on active galactic nuclei, galaxy evolution, and the interstellar medium. Be precise and concise, " +
	"report methods and quantitative results, and never invent information that is not in the abstracts."

// minAbstractChars is the floor for abstract shrinking when the prompt does
// not fit the context window.
const minAbstractChars = 100

// Options configures a LocalSummarizer. Zero caps fall back to 150 and 500.
type Options struct {
	SystemPrompt  string
	TitleChars    int
	AbstractChars int
	Request       generator.Request
	Now           func() time.Time
}

// LocalSummarizer writes the digest with a locally hosted model and falls
// back to a plain candidate list when generation fails.
type LocalSummarizer struct {
	gen           generator.Generator
	req           generator.Request
	system        string
	titleChars    int
	abstractChars int
	now           func() time.Time
}

func NewLocalSummarizer(gen generator.Generator, opts Options) *LocalSummarizer {
	s := &LocalSummarizer{
		gen:           gen,
		req:           opts.Request,
		system:        opts.SystemPrompt,
		titleChars:    opts.TitleChars,
		abstractChars: opts.AbstractChars,
		now:           opts.Now,
	}
	if s.system == "" {
		s.system = defaultSystemPrompt
	}
	if s.titleChars == 0 {
		s.titleChars = 150
	}
	if s.abstractChars == 0 {
		s.abstractChars = 500
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

func (s *LocalSummarizer) Summarize(ctx context.Context, candidates []fetcher.Entry) *Digest {
	d := &Digest{Date: s.now(), Candidates: candidates}
	if len(candidates) == 0 {
		return s.fallback(d, "no candidates")
	}

	req := s.req
	req.System = s.system
	req.Prompt = s.fitPrompt(candidates, d.Date)

	log.Info().Str("stage", "synthesize").Int("candidates", len(candidates)).Int("prompt_tokens", generator.EstimateTokens(req.System+req.Prompt)).Msg("generating summary")

	raw, err := s.gen.Generate(ctx, req)
	if err != nil {
		return s.fallback(d, fmt.Sprintf("generation failed: %v", err))
	}

	text := Clean(raw)
	if !Valid(text) {
		return s.fallback(d, fmt.Sprintf("output rejected (%d bytes after cleanup)", len(text)))
	}

	d.Text = text
	d.Generated = true
	return d
}

func (s *LocalSummarizer) fallback(d *Digest, reason string) *Digest {
	log.Warn().Str("stage", "synthesize").Str("reason", reason).Msg("summary failed, using fallback report")
	d.Text = FallbackReport(d.Candidates, s.titleChars)
	d.Generated = false
	d.FailureReason = reason
	return d
}

// fitPrompt builds the prompt, halving the abstract cap until the estimated
// prompt plus output budget fits the context window.
func (s *LocalSummarizer) fitPrompt(candidates []fetcher.Entry, date time.Time) string {
	abstractChars := s.abstractChars
	for {
		prompt := buildPrompt(candidates, date, s.titleChars, abstractChars)
		if s.req.ContextSize <= 0 || abstractChars <= minAbstractChars {
			return prompt
		}
		if generator.EstimateTokens(s.system+prompt)+s.req.MaxTokens <= s.req.ContextSize {
			return prompt
		}
		abstractChars = max(abstractChars/2, minAbstractChars)
		log.Debug().Int("abstract_chars", abstractChars).Msg("prompt over context budget, shrinking abstracts")
	}
}

func buildPrompt(candidates []fetcher.Entry, date time.Time, titleChars, abstractChars int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Today's arXiv listing (%s): %d selected papers.\n\n", date.Format("02 Jan 2006"), len(candidates))

	for i, c := range candidates {
		fmt.Fprintf(&sb, "--- Paper %d ---\n", i+1)
		fmt.Fprintf(&sb, "Title: %s\n", Truncate(c.Title, titleChars))
		if c.FirstAuthor != "" {
			fmt.Fprintf(&sb, "Authors: %s et al.\n", c.FirstAuthor)
		}
		fmt.Fprintf(&sb, "Link: %s\n", c.Link)
		fmt.Fprintf(&sb, "Abstract: %s\n\n", Truncate(c.Abstract, abstractChars))
	}

	sb.WriteString(`Your task is to write a technical briefing covering every paper above.
Use exactly this format for each paper:

**Paper: <title>**
Authors: <first author> et al.
Link: <link>
Summary: <two or three sentences on the method and the key quantitative result>

After the last paper, add one closing record:

**Daily Highlights:** <two or three sentences connecting today's papers>`)

	return sb.String()
}
