package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

var (
	// ErrTimeout is returned when generation exceeds its deadline.
	ErrTimeout = errors.New("generator: timed out")
	// ErrBinaryNotFound is returned when the generation executable is missing.
	ErrBinaryNotFound = errors.New("generator: binary not found")
	// ErrModelNotFound is returned when the model weights file is missing.
	ErrModelNotFound = errors.New("generator: model not found")
	// ErrEmptyOutput is returned when generation succeeds without any text.
	ErrEmptyOutput = errors.New("generator: empty output")
)

// Request describes one generation call. Zero values fall back to the
// backend's own defaults.
type Request struct {
	System        string
	Prompt        string
	MaxTokens     int
	ContextSize   int
	Seed          int64
	Temperature   float64
	RepeatPenalty float64
	Timeout       time.Duration
}

// Generator produces text for a prompt.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ExitError reports a generation process that exited non-zero.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("generator: exited with status %d", e.Code)
	}
	return fmt.Sprintf("generator: exited with status %d: %s", e.Code, e.Stderr)
}

// New creates a generator based on the configuration.
func New(cfg *config.Config) (Generator, error) {
	g := cfg.Generator
	switch g.Type {
	case "llama-cli":
		return NewProcess(g.Binary, g.ModelPath, g.GPULayers, g.ExtraArgs), nil
	case "openai":
		return NewOpenAI(g.BaseURL, g.APIKey, g.Model), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, g.Type)
	}
}

// ErrUnsupportedType is returned when an unsupported generator type is specified.
var ErrUnsupportedType = errors.New("unsupported generator type")

var endOfTurnMarkers = []string{
	"<|im_end|>",
	"<|eot_id|>",
	"<|endoftext|>",
	"[end of text]",
	"<<END>>",
}

// StripEndOfTurn cuts raw model output at the earliest end-of-turn marker and
// trims the remainder.
func StripEndOfTurn(raw string) string {
	cut := len(raw)
	for _, m := range endOfTurnMarkers {
		if i := strings.Index(raw, m); i >= 0 && i < cut {
			cut = i
		}
	}
	return strings.TrimSpace(raw[:cut])
}

// EstimateTokens approximates the token count of s at four bytes per token,
// rounded up.
func EstimateTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(s)) / 4.0))
}

// ChatPrompt renders a system and user message in the ChatML template used by
// instruction-tuned GGUF models, leaving the assistant turn open.
func ChatPrompt(system, user string) string {
	var sb strings.Builder
	if system != "" {
		sb.WriteString("<|im_start|>system\n")
		sb.WriteString(system)
		sb.WriteString("<|im_end|>\n")
	}
	sb.WriteString("<|im_start|>user\n")
	sb.WriteString(user)
	sb.WriteString("<|im_end|>\n")
	sb.WriteString("<|im_start|>assistant\n")
	return sb.String()
}
