package sink

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/segmentio/kafka-go"
)

// Default values for configuration
const (
	DefaultTopic        = "fanout.batch-results"
	DefaultMaxAttempts  = 3
	DefaultWriteTimeout = 10 * time.Second
	DefaultBatchTimeout = 50 * time.Millisecond
	DefaultBatchSize    = 100
	DefaultRequiredAcks = int(kafka.RequireAll)
)

// Config defines the Kafka producer used to publish batch results.
type Config struct {
	// Enabled turns publishing on. A disabled sink drops every result.
	Enabled bool `yaml:"enabled" envconfig:"SINK_KAFKA_ENABLED"`

	// Brokers is the list of bootstrap brokers.
	Brokers []string `yaml:"brokers" envconfig:"SINK_KAFKA_BROKERS"`

	// Topic receives one message per batch.
	//
	// Default: "fanout.batch-results"
	Topic string `yaml:"topic" envconfig:"SINK_KAFKA_TOPIC"`

	// RequiredAcks is -1 (all replicas), 0 (none) or 1 (leader only).
	//
	// Default: -1
	RequiredAcks int `yaml:"required_acks" envconfig:"SINK_KAFKA_REQUIRED_ACKS"`

	// MaxAttempts bounds delivery attempts per message.
	MaxAttempts int `yaml:"max_attempts" envconfig:"SINK_KAFKA_MAX_ATTEMPTS"`

	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SINK_KAFKA_WRITE_TIMEOUT"`

	// Async makes Publish return before the broker acknowledges. Delivery
	// errors are then only logged. BatchSize only applies in async mode;
	// synchronous writes flush every message immediately.
	Async        bool          `yaml:"async" envconfig:"SINK_KAFKA_ASYNC"`
	BatchSize    int           `yaml:"batch_size" envconfig:"SINK_KAFKA_BATCH_SIZE"`
	BatchTimeout time.Duration `yaml:"batch_timeout" envconfig:"SINK_KAFKA_BATCH_TIMEOUT"`

	// Compression is one of gzip, snappy, lz4, zstd. Empty disables it.
	Compression string `yaml:"compression" envconfig:"SINK_KAFKA_COMPRESSION"`

	TLS  TLSConfig  `yaml:"tls" envconfig:"SINK_KAFKA_TLS"`
	SASL SASLConfig `yaml:"sasl" envconfig:"SINK_KAFKA_SASL"`
}

// TLSConfig configures encrypted broker connections.
type TLSConfig struct {
	Enabled            bool   `yaml:"enabled" envconfig:"ENABLED"`
	CACertPath         string `yaml:"ca_cert_path" envconfig:"CA_CERT_PATH"`
	ClientCertPath     string `yaml:"client_cert_path" envconfig:"CLIENT_CERT_PATH"`
	ClientKeyPath      string `yaml:"client_key_path" envconfig:"CLIENT_KEY_PATH"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify" envconfig:"INSECURE_SKIP_VERIFY"`
}

// SASLConfig configures broker authentication.
type SASLConfig struct {
	Enabled bool `yaml:"enabled" envconfig:"ENABLED"`

	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `yaml:"mechanism" envconfig:"MECHANISM"`
	Username  string `yaml:"username" envconfig:"USERNAME"`
	Password  string `yaml:"password" envconfig:"PASSWORD"`
}

// DefaultConfig returns a disabled sink with producer defaults filled in.
func DefaultConfig() Config {
	return Config{
		Topic:        DefaultTopic,
		RequiredAcks: DefaultRequiredAcks,
		MaxAttempts:  DefaultMaxAttempts,
		WriteTimeout: DefaultWriteTimeout,
		BatchSize:    DefaultBatchSize,
		BatchTimeout: DefaultBatchTimeout,
	}
}

// NewConfig applies SINK_KAFKA_* environment variables over DefaultConfig.
func NewConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("sink: load config: %w", err)
	}
	return cfg, nil
}

// Validate checks an enabled configuration. A disabled one is always valid.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if len(c.Brokers) == 0 {
		return fmt.Errorf("sink: missing SINK_KAFKA_BROKERS")
	}
	if c.Topic == "" {
		return fmt.Errorf("sink: missing SINK_KAFKA_TOPIC")
	}
	switch c.RequiredAcks {
	case -1, 0, 1:
	default:
		return fmt.Errorf("sink: required acks must be -1, 0 or 1, got %d", c.RequiredAcks)
	}
	switch c.Compression {
	case "", "gzip", "snappy", "lz4", "zstd":
	default:
		return fmt.Errorf("sink: unsupported compression %q", c.Compression)
	}
	if c.SASL.Enabled {
		switch c.SASL.Mechanism {
		case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
		default:
			return fmt.Errorf("sink: unsupported SASL mechanism %q", c.SASL.Mechanism)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.BatchSize == 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = DefaultBatchTimeout
	}
	return c
}
