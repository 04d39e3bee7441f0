package embedding

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
)

// Provider computes embeddings for a batch of texts.
type Provider interface {
	// Create returns one vector per text, in input order.
	Create(ctx context.Context, model string, texts ...string) ([][]float64, error)
}

// openAIProvider talks to OpenAI, an OpenAI-compatible server or Azure OpenAI
// through the official SDK.
type openAIProvider struct {
	client     openai.Client
	dimensions int64
}

func newOpenAIProvider(cfg Config) *openAIProvider {
	opts := []option.RequestOption{
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	switch cfg.Provider {
	case ProviderAzure:
		opts = append(opts,
			azure.WithEndpoint(cfg.Endpoint, cfg.AzureAPIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	default:
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.Endpoint != "" {
			opts = append(opts, option.WithBaseURL(cfg.Endpoint))
		}
	}

	return &openAIProvider{
		client:     openai.NewClient(opts...),
		dimensions: cfg.Dimensions,
	}
}

// Create implements Provider.
func (p *openAIProvider) Create(ctx context.Context, model string, texts ...string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("embedding: no texts provided")
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(model),
	}
	if p.dimensions > 0 {
		params.Dimensions = openai.Int(p.dimensions)
	}

	resp, err := p.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d texts", len(resp.Data), len(texts))
	}

	out := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(out) {
			return nil, fmt.Errorf("embedding: vector index %d out of range", d.Index)
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
