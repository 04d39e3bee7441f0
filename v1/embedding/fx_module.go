package embedding

import (
	"context"

	"go.uber.org/fx"

	"github.com/weavebench/fanout/v1/observability"
)

// FXModule wires the embeddings client into Fx.
//
// It provides *Client and registers a shutdown hook that closes it.
// A Config must be supplied by the application, e.g. fx.Provide(embedding.NewConfig).
var FXModule = fx.Module("embedding",
	fx.Provide(NewClientWithDI),
	fx.Invoke(RegisterEmbeddingLifecycle),
)

// EmbeddingParams groups the dependencies needed to create a Client.
type EmbeddingParams struct {
	fx.In

	Config   Config
	Logger   Logger                 `optional:"true"`
	Observer observability.Observer `optional:"true"`
}

// NewClientWithDI creates the client with the optional logger and observer injected.
func NewClientWithDI(params EmbeddingParams) (*Client, error) {
	client, err := NewClient(params.Config)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		client.logger = params.Logger
	}
	if params.Observer != nil {
		client.observer = params.Observer
	}
	return client, nil
}

// RegisterEmbeddingLifecycle closes the client on application shutdown.
func RegisterEmbeddingLifecycle(lc fx.Lifecycle, client *Client) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
}
