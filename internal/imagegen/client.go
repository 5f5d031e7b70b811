// Package imagegen produces scene illustrations through the Luma Dream
// Machine API. Image generation is strictly best-effort: every failure mode
// resolves to the configured placeholder URL so scene delivery never blocks
// on the renderer.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	maxPromptLength    = 180
	defaultBaseURL     = "https://api.lumalabs.ai/dream-machine/v1"
	defaultStyleSuffix = ", high contrast, cinematic lighting"
	defaultPlaceholder = "/placeholder.svg?height=600&width=800"
)

// Config holds settings for the image renderer client.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	PlaceholderURL string
	StyleSuffix    string
	CreateTimeout  time.Duration
	PollInterval   time.Duration
	PollAttempts   int
}

// Client renders scene illustrations.
type Client struct {
	httpClient     *http.Client
	apiKey         string
	baseURL        string
	model          string
	placeholderURL string
	styleSuffix    string
	createTimeout  time.Duration
	pollInterval   time.Duration
	pollAttempts   int
	logger         *zap.Logger
}

// NewClient creates an image renderer client. An empty API key is allowed;
// such a client always returns the placeholder.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = "photon-1"
	}
	if cfg.PlaceholderURL == "" {
		cfg.PlaceholderURL = defaultPlaceholder
	}
	if cfg.StyleSuffix == "" {
		cfg.StyleSuffix = defaultStyleSuffix
	}
	if cfg.CreateTimeout <= 0 {
		cfg.CreateTimeout = 8 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 6
	}

	return &Client{
		httpClient:     &http.Client{},
		apiKey:         cfg.APIKey,
		baseURL:        cfg.BaseURL,
		model:          cfg.Model,
		placeholderURL: cfg.PlaceholderURL,
		styleSuffix:    cfg.StyleSuffix,
		createTimeout:  cfg.CreateTimeout,
		pollInterval:   cfg.PollInterval,
		pollAttempts:   cfg.PollAttempts,
		logger:         logger.Named("ImageGen"),
	}
}

// PlaceholderURL returns the URL substituted when rendering fails.
func (c *Client) PlaceholderURL() string {
	return c.placeholderURL
}

type generationRequest struct {
	Prompt       string         `json:"prompt"`
	Model        string         `json:"model"`
	AspectRatio  string         `json:"aspect_ratio"`
	CharacterRef map[string]any `json:"character_ref,omitempty"`
}

type generationResponse struct {
	ID            string `json:"id"`
	State         string `json:"state"`
	FailureReason string `json:"failure_reason"`
	Assets        struct {
		Image string `json:"image"`
	} `json:"assets"`
}

// Generate renders an illustration for the given prompt and returns its URL.
// characterRefURL pins the protagonist's face across scenes; a missing or
// malformed reference short-circuits to the placeholder without contacting
// the renderer. Generate never fails: any error resolves to the placeholder.
func (c *Client) Generate(ctx context.Context, prompt, characterRefURL string) (result string) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Panic during image generation", zap.Any("panic", r))
			result = c.placeholderURL
		}
	}()

	if c.apiKey == "" {
		c.logger.Debug("Image API key not set, using placeholder")
		return c.placeholderURL
	}

	// Without a usable face reference the render cannot stay consistent
	// with the rest of the story; skip the remote call entirely.
	if !validReferenceURL(characterRefURL) {
		c.logger.Debug("Missing or invalid character reference URL, using placeholder",
			zap.String("url", characterRefURL))
		return c.placeholderURL
	}

	id, err := c.createGeneration(ctx, prompt, characterRefURL)
	if err != nil {
		c.logger.Warn("Image generation request failed", zap.Error(err))
		return c.placeholderURL
	}

	imageURL, err := c.pollGeneration(ctx, id)
	if err != nil {
		c.logger.Warn("Image generation did not complete",
			zap.String("generation_id", id),
			zap.Error(err))
		return c.placeholderURL
	}

	return imageURL
}

func (c *Client) createGeneration(ctx context.Context, prompt, characterRefURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.createTimeout)
	defer cancel()

	reqBody := generationRequest{
		Prompt:      c.buildPrompt(prompt),
		Model:       c.model,
		AspectRatio: "4:3",
		CharacterRef: map[string]any{
			"identity0": map[string]any{
				"images": []string{characterRefURL},
			},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode generation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/generations/image", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build generation request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("generation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("generation request returned status %d", resp.StatusCode)
	}

	var generation generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&generation); err != nil {
		return "", fmt.Errorf("failed to decode generation response: %w", err)
	}
	if generation.ID == "" {
		return "", fmt.Errorf("generation response missing id")
	}

	return generation.ID, nil
}

func (c *Client) pollGeneration(ctx context.Context, id string) (string, error) {
	for attempt := 0; attempt < c.pollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}

		generation, err := c.getGeneration(ctx, id)
		if err != nil {
			c.logger.Debug("Generation status check failed",
				zap.String("generation_id", id),
				zap.Int("attempt", attempt+1),
				zap.Error(err))
			continue
		}

		switch generation.State {
		case "completed":
			if generation.Assets.Image == "" {
				return "", fmt.Errorf("completed generation has no image asset")
			}
			return generation.Assets.Image, nil
		case "failed":
			return "", fmt.Errorf("generation failed: %s", generation.FailureReason)
		}
	}

	return "", fmt.Errorf("generation not ready after %d attempts", c.pollAttempts)
}

func (c *Client) getGeneration(ctx context.Context, id string) (*generationResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/generations/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status request returned status %d", resp.StatusCode)
	}

	var generation generationResponse
	if err := json.NewDecoder(resp.Body).Decode(&generation); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &generation, nil
}

// validReferenceURL reports whether raw is an http(s) URL the renderer can
// fetch as a face reference.
func validReferenceURL(raw string) bool {
	if raw == "" {
		return false
	}
	parsed, err := url.ParseRequestURI(raw)
	return err == nil && (parsed.Scheme == "http" || parsed.Scheme == "https")
}

// buildPrompt trims the prompt, truncates it to the renderer's limit and
// appends the house style suffix. Truncation counts runes so a multibyte
// character is never split.
func (c *Client) buildPrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if runes := []rune(prompt); len(runes) > maxPromptLength {
		prompt = string(runes[:maxPromptLength])
	}
	return prompt + c.styleSuffix
}
