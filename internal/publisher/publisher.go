package publisher

import (
	"context"
	"os"

	"github.com/ryosukesatoh/arxiv-digest/internal/config"
)

// Publisher delivers finished digest text to some output destination.
type Publisher interface {
	Publish(ctx context.Context, text string) error
}

// New creates the Discord publisher described by the configuration. Without a
// webhook URL it writes to stdout instead.
func New(cfg *config.Config) Publisher {
	d := cfg.Publisher.Discord
	suppress := d.SuppressEmbeds == nil || *d.SuppressEmbeds
	return NewDiscordPublisher(d.WebhookURL, DiscordOptions{
		ChunkSize:      d.ChunkSize,
		Timeout:        d.Timeout,
		Delay:          d.Delay,
		SuppressEmbeds: suppress,
		Local:          NewStdoutPublisher(os.Stdout),
	})
}
