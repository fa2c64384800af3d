package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// maxMessageBytes is Discord's hard limit on message content.
	maxMessageBytes = 2000
	// flagSuppressEmbeds stops Discord from unfurling links into previews.
	flagSuppressEmbeds = 1 << 2
	// partPrefixReserve leaves room for "**Part i/n**\n" on multi-part posts.
	partPrefixReserve = len("**Part 999/999**\n")
)

type discordWebhookPayload struct {
	Content string `json:"content"`
	Flags   int    `json:"flags,omitempty"`
}

// DiscordOptions tunes a DiscordPublisher. Zero values get the defaults
// 1900 bytes, 20s and no delay.
type DiscordOptions struct {
	ChunkSize      int
	Timeout        time.Duration
	Delay          time.Duration
	SuppressEmbeds bool
	// Local receives the digest when no webhook is configured.
	Local Publisher
}

// DiscordPublisher posts a digest to a Discord channel via webhook, one
// message per chunk, in order.
type DiscordPublisher struct {
	webhookURL string
	client     *http.Client
	chunkSize  int
	flags      int
	delay      time.Duration
	local      Publisher
}

// NewDiscordPublisher creates a new DiscordPublisher.
func NewDiscordPublisher(webhookURL string, opts DiscordOptions) *DiscordPublisher {
	d := &DiscordPublisher{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: opts.Timeout},
		chunkSize:  opts.ChunkSize,
		delay:      opts.Delay,
		local:      opts.Local,
	}
	if d.client.Timeout == 0 {
		d.client.Timeout = 20 * time.Second
	}
	if d.chunkSize <= 0 || d.chunkSize > maxMessageBytes {
		d.chunkSize = 1900
	}
	if opts.SuppressEmbeds {
		d.flags = flagSuppressEmbeds
	}
	if d.local == nil {
		d.local = NewStdoutPublisher(os.Stdout)
	}
	return d
}

// Publish sends text as a series of messages. Delivery stops at the first
// failed chunk; chunks already posted stay posted.
func (d *DiscordPublisher) Publish(ctx context.Context, text string) error {
	if d.webhookURL == "" {
		log.Warn().Msg("discord webhook not configured, writing digest locally")
		return d.local.Publish(ctx, text)
	}

	chunks := d.split(text)
	for i, chunk := range chunks {
		if err := d.sendWebhook(ctx, chunk); err != nil {
			log.Error().Err(err).Int("chunk", i+1).Int("of", len(chunks)).Msg("discord delivery stopped")
			return fmt.Errorf("discord: failed to send chunk %d/%d: %w", i+1, len(chunks), err)
		}
		log.Debug().Int("chunk", i+1).Int("of", len(chunks)).Int("bytes", len(chunk)).Msg("discord chunk sent")

		// Delay between chunks to avoid rate limits.
		if i < len(chunks)-1 && d.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.delay):
			}
		}
	}

	log.Info().Int("chunks", len(chunks)).Msg("digest delivered to discord")
	return nil
}

// split chunks text to the budget, numbering the parts when there is more
// than one.
func (d *DiscordPublisher) split(text string) []string {
	chunks := Chunk(text, d.chunkSize)
	if len(chunks) <= 1 {
		return chunks
	}

	chunks = Chunk(text, d.chunkSize-partPrefixReserve)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("**Part %d/%d**\n", i+1, len(chunks)) + chunks[i]
	}
	return chunks
}

// sendWebhook posts one message to the Discord webhook.
func (d *DiscordPublisher) sendWebhook(ctx context.Context, content string) error {
	payload := discordWebhookPayload{Content: content, Flags: d.flags}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	return nil
}
