package dispatcher

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Default values for configuration
const (
	DefaultEndpoint         = "http://localhost:8080"
	DefaultMaxConnections   = 32
	DefaultDeadline         = 30 * time.Second
	DefaultMaxResponseBytes = 8 << 20
	DefaultDialTimeout      = 5 * time.Second
	DefaultIdleConnTimeout  = 90 * time.Second
)

// Config defines how the dispatcher reaches its downstream target and how much
// parallelism it is allowed to use.
type Config struct {
	// Endpoint is the base URL of the downstream target, e.g. "http://weaviate:8080".
	// Member request paths are resolved against it.
	//
	// Default: "http://localhost:8080"
	Endpoint string `yaml:"endpoint" envconfig:"DISPATCHER_ENDPOINT"`

	// APIKey is sent as "Authorization: Bearer <key>" unless the member request
	// already carries an Authorization header. Leave empty for anonymous access.
	APIKey string `yaml:"api_key" envconfig:"DISPATCHER_API_KEY"`

	// MaxConnections is the capacity of the shared connection pool. It bounds the
	// number of member requests in flight across all concurrent batches; members
	// beyond it queue for a slot and the queue time counts against their deadline.
	//
	// Default: 32
	MaxConnections int `yaml:"max_connections" envconfig:"DISPATCHER_MAX_CONNECTIONS"`

	// DefaultDeadline is the batch deadline used by callers that do not pick one
	// themselves (the relay, the replay command). Dispatch itself always uses the
	// deadline carried by the batch.
	//
	// Default: 30s
	DefaultDeadline time.Duration `yaml:"default_deadline" envconfig:"DISPATCHER_DEFAULT_DEADLINE"`

	// MaxResponseBytes caps how much of each response body is retained.
	// Longer bodies are truncated and the outcome is flagged as such.
	//
	// Default: 8 MiB
	MaxResponseBytes int64 `yaml:"max_response_bytes" envconfig:"DISPATCHER_MAX_RESPONSE_BYTES"`

	// DialTimeout bounds establishing a new TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration `yaml:"dial_timeout" envconfig:"DISPATCHER_DIAL_TIMEOUT"`

	// IdleConnTimeout is how long an idle keep-alive connection stays in the pool.
	//
	// Default: 90s
	IdleConnTimeout time.Duration `yaml:"idle_conn_timeout" envconfig:"DISPATCHER_IDLE_CONN_TIMEOUT"`

	// InsecureSkipVerify disables TLS certificate verification.
	// WARNING: only for test clusters with self-signed certificates.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify" envconfig:"DISPATCHER_INSECURE_SKIP_VERIFY"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Endpoint:         DefaultEndpoint,
		MaxConnections:   DefaultMaxConnections,
		DefaultDeadline:  DefaultDeadline,
		MaxResponseBytes: DefaultMaxResponseBytes,
		DialTimeout:      DefaultDialTimeout,
		IdleConnTimeout:  DefaultIdleConnTimeout,
	}
}

// NewConfig starts from DefaultConfig and overrides every field that has its
// environment variable set.
func NewConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("dispatcher: load config: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration can be used to build a pool.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("dispatcher: missing DISPATCHER_ENDPOINT")
	}
	u, err := url.Parse(c.Endpoint)
	if err != nil {
		return fmt.Errorf("dispatcher: invalid endpoint %q: %w", c.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("dispatcher: endpoint %q must use http or https", c.Endpoint)
	}
	if c.MaxConnections <= 0 {
		return fmt.Errorf("dispatcher: max connections must be positive, got %d", c.MaxConnections)
	}
	if c.DefaultDeadline < 0 {
		return fmt.Errorf("dispatcher: default deadline must not be negative")
	}
	return nil
}

// withDefaults fills zero values the same way NewClient functions across the
// module do, so a partially populated Config still yields a usable pool.
func (c Config) withDefaults() Config {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.DefaultDeadline == 0 {
		c.DefaultDeadline = DefaultDeadline
	}
	if c.MaxResponseBytes <= 0 {
		c.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.IdleConnTimeout == 0 {
		c.IdleConnTimeout = DefaultIdleConnTimeout
	}
	return c
}
