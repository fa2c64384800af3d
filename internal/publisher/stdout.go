package publisher

import (
	"context"
	"fmt"
	"io"
)

// StdoutPublisher writes the digest between plain-text markers.
type StdoutPublisher struct {
	w io.Writer
}

func NewStdoutPublisher(w io.Writer) *StdoutPublisher {
	return &StdoutPublisher{w: w}
}

func (p *StdoutPublisher) Publish(_ context.Context, text string) error {
	if _, err := fmt.Fprintf(p.w, "--- BEGIN DIGEST ---\n%s\n--- END DIGEST ---\n", text); err != nil {
		return fmt.Errorf("stdout: %w", err)
	}
	return nil
}
