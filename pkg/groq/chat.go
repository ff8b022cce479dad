// Package groq provides a chat-completion client for Groq's
// OpenAI-compatible API. One blocking request-response cycle per call;
// no streaming.
package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/pkg/fn"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Groq OpenAI-compatible endpoint.
const DefaultBaseURL = "https://api.groq.com/openai"

// jsonModeTemperature is the fixed low temperature for structured output.
const jsonModeTemperature = 0.1

// Config holds client construction parameters.
type Config struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// Client calls the Groq chat completions API.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	retry   fn.RetryOpts
}

// NewClient creates a Groq chat client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 3),
		retry:   fn.DefaultRetry,
	}
}

// ProviderName identifies the LLM provider.
func (c *Client) ProviderName() string { return "groq" }

// Model returns the configured chat model.
func (c *Client) Model() string { return c.cfg.Model }

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float32         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Generate runs one chat completion with the configured temperature.
func (c *Client) Generate(ctx context.Context, systemPrompt, userInput string) (string, error) {
	return c.generate(ctx, systemPrompt, userInput, c.cfg.Temperature, nil)
}

// GenerateJSON runs one chat completion in JSON mode at a fixed low
// temperature to favour determinism.
func (c *Client) GenerateJSON(ctx context.Context, systemPrompt, userInput string) (string, error) {
	return c.generate(ctx, systemPrompt, userInput, jsonModeTemperature, &responseFormat{Type: "json_object"})
}

// GenerateWithContext appends retrieved context to the system prompt and
// calls Generate. Each context entry is dash-prefixed and newline-joined.
func (c *Client) GenerateWithContext(ctx context.Context, systemPrompt, userInput string, contexts []string) (string, error) {
	if len(contexts) > 0 {
		var b strings.Builder
		b.WriteString(systemPrompt)
		b.WriteString("\n\n---\nRelevant context from past notes:\n")
		for _, entry := range contexts {
			b.WriteString("- ")
			b.WriteString(entry)
			b.WriteByte('\n')
		}
		systemPrompt = b.String()
	}
	return c.Generate(ctx, systemPrompt, userInput)
}

func (c *Client) generate(ctx context.Context, systemPrompt, userInput string, temperature float32, format *responseFormat) (string, error) {
	text, err := fn.Retry(ctx, c.retry, func(ctx context.Context) (string, error) {
		return c.call(ctx, systemPrompt, userInput, temperature, format)
	})
	if err != nil {
		return "", domain.NewProviderError(domain.KindLLM, "chat completion failed", err)
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, systemPrompt, userInput string, temperature float32, format *responseFormat) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	body, _ := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userInput},
		},
		Temperature:    temperature,
		MaxTokens:      c.cfg.MaxTokens,
		ResponseFormat: format,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq chat: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("groq chat: status %d: %s", resp.StatusCode, snippet)
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("groq chat decode: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("groq chat: empty choices")
	}
	return out.Choices[0].Message.Content, nil
}
