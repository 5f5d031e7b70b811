// Package ai wraps the narrative generator behind a single chat-completion
// call against an OpenAI-compatible endpoint.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

// Client calls the narrative generation model.
type Client struct {
	client     *openai.Client
	modelName  string
	timeout    time.Duration
	maxRetries int
}

// Config holds settings for the narrative generator client.
type Config struct {
	APIKey     string
	BaseURL    string
	ModelName  string
	Timeout    int // seconds
	MaxRetries int
}

// New creates a narrative generator client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("narrative generator API key is not set")
	}

	if cfg.ModelName == "" {
		cfg.ModelName = "mistral-large-latest"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}

	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = cfg.BaseURL
	}

	return &Client{
		client:     openai.NewClientWithConfig(config),
		modelName:  cfg.ModelName,
		timeout:    time.Duration(cfg.Timeout) * time.Second,
		maxRetries: cfg.MaxRetries,
	}, nil
}

// Complete sends a system/user prompt pair and returns the raw model reply.
// The reply may be wrapped in a fenced code block; callers parse it with
// ParseSceneDraft.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	attempts := 0
	for attempts < c.maxRetries {
		attempts++

		req := openai.ChatCompletionRequest{
			Model: c.modelName,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: userPrompt,
				},
			},
			Temperature: 0.7,
			MaxTokens:   1500,
			TopP:        0.95,
		}

		resp, err := c.client.CreateChatCompletion(ctx, req)
		if err != nil {
			log.Error().Err(err).Int("attempt", attempts).Msg("Chat completion call failed")
			if attempts >= c.maxRetries {
				return "", fmt.Errorf("narrative generation failed after %d attempts: %w", attempts, err)
			}
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("narrative generation cancelled: %w", ctx.Err())
			case <-time.After(time.Duration(attempts) * time.Second):
			}
			continue
		}

		if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
			log.Warn().Int("attempt", attempts).Msg("Empty reply from narrative model")
			if attempts >= c.maxRetries {
				return "", errors.New("empty reply from narrative model after retries")
			}
			continue
		}

		responseContent := resp.Choices[0].Message.Content
		log.Debug().
			Str("model", c.modelName).
			Int("attempt", attempts).
			Int("length", len(responseContent)).
			Msg("Narrative model replied")
		return responseContent, nil
	}

	return "", errors.New("no reply from narrative model after retries")
}
