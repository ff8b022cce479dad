// Package voyage provides a Voyage AI embedding client. Texts are
// embedded in query or document mode so retrieval-side and storage-side
// vectors are optimised for each other.
package voyage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mindkeep-ai/mindkeep/engine/domain"
	"github.com/mindkeep-ai/mindkeep/pkg/fn"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the Voyage AI API endpoint.
const DefaultBaseURL = "https://api.voyageai.com"

// InputType selects the embedding role.
type InputType string

const (
	InputQuery    InputType = "query"
	InputDocument InputType = "document"
)

// Config holds client construction parameters.
type Config struct {
	APIKey    string
	Model     string
	Dimension int
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
}

// Client calls the Voyage AI embeddings API. Every call hits the
// network; there is no local caching.
type Client struct {
	cfg     Config
	client  *http.Client
	limiter *rate.Limiter
	retry   fn.RetryOpts
}

// NewClient creates a Voyage embedding client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 5),
		retry:   fn.DefaultRetry,
	}
}

// Dimension returns the configured embedding dimension.
func (c *Client) Dimension() int { return c.cfg.Dimension }

// ProviderName identifies the embedding provider.
func (c *Client) ProviderName() string { return "voyage" }

// Model returns the configured embedding model.
func (c *Client) Model() string { return c.cfg.Model }

type embedRequest struct {
	Input     []string  `json:"input"`
	Model     string    `json:"model"`
	InputType InputType `json:"input_type,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// EmbedQuery embeds text for similarity search.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text, InputQuery)
}

// EmbedDocument embeds text for storage.
func (c *Client) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text, InputDocument)
}

func (c *Client) embedOne(ctx context.Context, text string, typ InputType) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text}, typ)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds multiple texts in a single API call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string, typ InputType) ([][]float32, error) {
	vecs, err := fn.Retry(ctx, c.retry, func(ctx context.Context) ([][]float32, error) {
		return c.call(ctx, texts, typ)
	})
	if err != nil {
		return nil, domain.NewProviderError(domain.KindEmbedding, "embedding request failed", err)
	}
	return vecs, nil
}

func (c *Client) call(ctx context.Context, texts []string, typ InputType) ([][]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, _ := json.Marshal(embedRequest{Input: texts, Model: c.cfg.Model, InputType: typ})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("voyage embed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("voyage embed: status %d: %s", resp.StatusCode, snippet)
	}

	var out embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("voyage embed decode: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("voyage embed: got %d embeddings for %d inputs", len(out.Data), len(texts))
	}

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		if c.cfg.Dimension > 0 && len(d.Embedding) != c.cfg.Dimension {
			return nil, fmt.Errorf("voyage embed: dimension %d, expected %d", len(d.Embedding), c.cfg.Dimension)
		}
		v := make([]float32, len(d.Embedding))
		for j, f := range d.Embedding {
			v[j] = float32(f)
		}
		vecs[i] = v
	}
	return vecs, nil
}
