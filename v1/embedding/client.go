package embedding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/weavebench/fanout/v1/observability"
)

// ErrEmptyInput is returned when there is nothing to embed.
var ErrEmptyInput = errors.New("embedding: empty input")

// Logger is the subset of *logger.LoggerClient used by the client.
type Logger interface {
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
}

// Client is the public entrypoint for computing embeddings.
//
// It hides the provider details from the query generator and splits large
// inputs into provider-sized batches.
type Client struct {
	provider  Provider
	model     string
	batchSize int

	logger   Logger
	observer observability.Observer
}

// NewClient validates cfg and builds a client backed by the OpenAI SDK.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("embedding: invalid config: %w", err)
	}
	return NewClientWithProvider(cfg, newOpenAIProvider(cfg)), nil
}

// NewClientWithProvider builds a client around an arbitrary Provider.
// Only Model and BatchSize are taken from cfg.
func NewClientWithProvider(cfg Config, provider Provider) *Client {
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{provider: provider, model: model, batchSize: batchSize}
}

// WithLogger attaches a logger. Returns the client for chaining.
func (c *Client) WithLogger(logger Logger) *Client {
	c.logger = logger
	return c
}

// WithObserver attaches an observer notified once per provider request.
func (c *Client) WithObserver(observer observability.Observer) *Client {
	c.observer = observer
	return c
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Embed returns the vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch returns one vector per text, in input order. Inputs larger than
// the configured batch size are sent as several sequential requests.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))

		began := time.Now()
		vectors, err := c.provider.Create(ctx, c.model, texts[start:end]...)
		c.observe(time.Since(began), err, end-start)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("Embedding request failed", err, map[string]interface{}{
					"model": c.model,
					"texts": end - start,
				})
			}
			return nil, fmt.Errorf("embedding: create embeddings: %w", err)
		}
		out = append(out, vectors...)
	}

	if c.logger != nil {
		c.logger.Debug("Embedded texts", nil, map[string]interface{}{
			"model": c.model,
			"texts": len(texts),
		})
	}
	return out, nil
}

// Close releases provider resources, if the provider holds any.
func (c *Client) Close() error {
	if closer, ok := c.provider.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

func (c *Client) observe(d time.Duration, err error, n int) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveOperation(observability.OperationContext{
		Component: "embedding",
		Operation: "embed",
		Resource:  c.model,
		Duration:  d,
		Error:     err,
		Size:      int64(n),
	})
}
