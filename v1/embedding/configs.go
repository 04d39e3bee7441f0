package embedding

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Supported providers.
const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

// Default values for configuration
const (
	DefaultModel           = "text-embedding-3-small"
	DefaultAzureAPIVersion = "2024-06-01"
	DefaultTimeout         = 30 * time.Second
	DefaultBatchSize       = 64
	DefaultMaxRetries      = 2
)

// Config selects and configures the embeddings backend used to vectorize
// hybrid query text.
type Config struct {
	// Provider is "openai" for api.openai.com or any OpenAI-compatible
	// inference service, and "azure" for an Azure OpenAI deployment.
	//
	// Default: "openai"
	Provider string `yaml:"provider" envconfig:"EMBEDDING_PROVIDER"`

	// Endpoint is the base URL. For "openai" it replaces the public API root,
	// e.g. "http://inference:8000/v1"; leave empty for api.openai.com. For
	// "azure" it is the resource endpoint, e.g. "https://my-res.openai.azure.com".
	Endpoint string `yaml:"endpoint" envconfig:"EMBEDDING_ENDPOINT"`

	// APIKey authenticates against the provider.
	APIKey string `yaml:"api_key" envconfig:"EMBEDDING_API_KEY"`

	// Model is the embedding model, or the deployment name on Azure.
	//
	// Default: "text-embedding-3-small"
	Model string `yaml:"model" envconfig:"EMBEDDING_MODEL"`

	// Dimensions truncates vectors on models that support it. Zero keeps the
	// model's native size.
	Dimensions int64 `yaml:"dimensions" envconfig:"EMBEDDING_DIMENSIONS"`

	// AzureAPIVersion is the api-version query parameter sent to Azure.
	//
	// Default: "2024-06-01"
	AzureAPIVersion string `yaml:"azure_api_version" envconfig:"EMBEDDING_AZURE_API_VERSION"`

	// Timeout bounds a single embeddings request, retries included.
	//
	// Default: 30s
	Timeout time.Duration `yaml:"timeout" envconfig:"EMBEDDING_TIMEOUT"`

	// BatchSize is the maximum number of texts sent in one request.
	//
	// Default: 64
	BatchSize int `yaml:"batch_size" envconfig:"EMBEDDING_BATCH_SIZE"`

	// MaxRetries is how often the SDK retries rate-limited or failed requests.
	//
	// Default: 2
	MaxRetries int `yaml:"max_retries" envconfig:"EMBEDDING_MAX_RETRIES"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Provider:        ProviderOpenAI,
		Model:           DefaultModel,
		AzureAPIVersion: DefaultAzureAPIVersion,
		Timeout:         DefaultTimeout,
		BatchSize:       DefaultBatchSize,
		MaxRetries:      DefaultMaxRetries,
	}
}

// NewConfig starts from DefaultConfig and applies EMBEDDING_* environment variables.
func NewConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("embedding: load config: %w", err)
	}
	return cfg, nil
}

// Validate ensures required fields are present.
func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenAI:
	case ProviderAzure:
		if c.Endpoint == "" {
			return fmt.Errorf("embedding: missing EMBEDDING_ENDPOINT for azure provider")
		}
	default:
		return fmt.Errorf("embedding: unknown provider %q", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_API_KEY")
	}
	if c.Model == "" {
		return fmt.Errorf("embedding: missing EMBEDDING_MODEL")
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("embedding: batch size must not be negative")
	}
	return nil
}
