package summarizer

import (
	"time"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
	"github.com/ryosukesatoh/arxiv-digest/internal/generator"
)

// New creates a summarizer based on the configuration.
func New(cfg *config.Config, gen generator.Generator) Summarizer {
	g := cfg.Summarizer.Generate
	return NewLocalSummarizer(gen, Options{
		SystemPrompt:  cfg.Summarizer.SystemPrompt,
		TitleChars:    cfg.Summarizer.TitleChars,
		AbstractChars: cfg.Summarizer.AbstractChars,
		Request: generator.Request{
			MaxTokens:     g.MaxTokens,
			ContextSize:   g.ContextSize,
			Seed:          cfg.Generator.Seed,
			Temperature:   g.Temperature,
			RepeatPenalty: g.RepeatPenalty,
			Timeout:       g.Timeout,
		},
		Now: time.Now,
	})
}
