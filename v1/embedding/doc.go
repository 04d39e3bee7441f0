// Package embedding turns query text into vectors for hybrid search.
//
// The weaviate query generator needs a vector next to the text for every
// hybrid query. This package fetches it from OpenAI, any OpenAI-compatible
// inference server, or an Azure OpenAI deployment through the official
// openai-go SDK.
//
// # Usage
//
//	client, err := embedding.NewClient(embedding.Config{
//		Provider: embedding.ProviderOpenAI,
//		APIKey:   os.Getenv("OPENAI_API_KEY"),
//		Model:    "text-embedding-3-small",
//	})
//	if err != nil {
//		return err
//	}
//	vector, err := client.Embed(ctx, "love songs from the eighties")
//
// For Azure set Provider to "azure", Endpoint to the resource URL and Model
// to the deployment name.
//
// # Configuration
//
//	EMBEDDING_PROVIDER=openai           # openai or azure
//	EMBEDDING_ENDPOINT=                 # base URL, required for azure
//	EMBEDDING_API_KEY=...
//	EMBEDDING_MODEL=text-embedding-3-small
//	EMBEDDING_DIMENSIONS=0
//	EMBEDDING_AZURE_API_VERSION=2024-06-01
//	EMBEDDING_TIMEOUT=30s
//	EMBEDDING_BATCH_SIZE=64
//	EMBEDDING_MAX_RETRIES=2
package embedding
