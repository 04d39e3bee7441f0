package relay

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Default values for configuration
const (
	DefaultAddress       = ":8000"
	DefaultReadTimeout   = 10 * time.Second
	DefaultWriteTimeout  = 2 * time.Minute
	DefaultHealthTimeout = 5 * time.Second
	DefaultMaxBodyBytes  = 10 << 20
)

// Config defines the relay HTTP server.
type Config struct {
	// Address is the listen address.
	//
	// Default: ":8000"
	Address string `yaml:"address" envconfig:"RELAY_ADDRESS"`

	ReadTimeout time.Duration `yaml:"read_timeout" envconfig:"RELAY_READ_TIMEOUT"`

	// WriteTimeout must exceed the largest batch deadline callers ask for.
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"RELAY_WRITE_TIMEOUT"`

	// HealthTimeout bounds the readiness check against the downstream target.
	//
	// Default: 5s
	HealthTimeout time.Duration `yaml:"health_timeout" envconfig:"RELAY_HEALTH_TIMEOUT"`

	// MaxBodyBytes caps the size of a /parallel-search request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes" envconfig:"RELAY_MAX_BODY_BYTES"`
}

// DefaultConfig returns a Config populated with the package defaults.
func DefaultConfig() Config {
	return Config{
		Address:       DefaultAddress,
		ReadTimeout:   DefaultReadTimeout,
		WriteTimeout:  DefaultWriteTimeout,
		HealthTimeout: DefaultHealthTimeout,
		MaxBodyBytes:  DefaultMaxBodyBytes,
	}
}

// NewConfig applies RELAY_* environment variables over DefaultConfig.
func NewConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("relay: load config: %w", err)
	}
	return cfg, nil
}

func (c Config) withDefaults() Config {
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.HealthTimeout <= 0 {
		c.HealthTimeout = DefaultHealthTimeout
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}
