package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of the go-openai client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAI talks to an OpenAI-compatible chat endpoint such as llama-server.
type OpenAI struct {
	client ChatClient
	model  string
}

func NewOpenAI(baseURL, apiKey, model string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), model: model}
}

func (o *OpenAI) Generate(ctx context.Context, req Request) (string, error) {
	parent := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Prompt})

	seed := int(req.Seed)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:            o.model,
		Messages:         messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      float32(req.Temperature),
		FrequencyPenalty: penalty(req.RepeatPenalty),
		Seed:             &seed,
		N:                1,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && parent.Err() == nil {
			return "", fmt.Errorf("%w after %s", ErrTimeout, req.Timeout)
		}
		return "", fmt.Errorf("generator: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyOutput
	}
	return resp.Choices[0].Message.Content, nil
}

// penalty maps a llama.cpp repeat penalty (1.0 = off) onto the OpenAI
// frequency penalty range.
func penalty(repeat float64) float32 {
	if repeat <= 1 {
		return 0
	}
	p := repeat - 1
	if p > 2 {
		p = 2
	}
	return float32(p)
}
