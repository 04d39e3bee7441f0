package sink

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/compress"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/observability"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("sink: closed")

// Publisher accepts finished batch results.
type Publisher interface {
	Publish(ctx context.Context, result *dispatcher.BatchResult) error
}

// Writer is the subset of *kafka.Writer the sink needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Carrier exposes the trace context of ctx as string pairs. *tracer.Tracer satisfies it.
type Carrier interface {
	GetCarrier(ctx context.Context) map[string]string
}

// Logger is the logging surface the sink uses.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
}

// Sink publishes results to a single Kafka topic.
type Sink struct {
	cfg      Config
	writer   Writer
	logger   Logger
	observer observability.Observer
	carrier  Carrier

	mu     sync.RWMutex
	closed bool
}

// NewSink builds a Kafka producer from cfg.
//
// Example:
//
//	s, err := sink.NewSink(cfg, log)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
func NewSink(cfg Config, logger Logger) (*Sink, error) {
	cfg = cfg.withDefaults()
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("sink: no brokers configured")
	}

	var tlsConfig *tls.Config
	var err error
	if cfg.TLS.Enabled {
		tlsConfig, err = createTLSConfig(cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("sink: failed to create TLS config: %w", err)
		}
	}

	var mechanism sasl.Mechanism
	if cfg.SASL.Enabled {
		mechanism, err = createSASLMechanism(cfg.SASL)
		if err != nil {
			return nil, fmt.Errorf("sink: failed to create SASL mechanism: %w", err)
		}
	}

	s := NewSinkWithWriter(cfg, createWriter(cfg, tlsConfig, mechanism, logger))
	s.logger = logger
	if logger != nil {
		logger.Info("Kafka result sink initialized", nil, map[string]interface{}{
			"brokers": cfg.Brokers,
			"topic":   cfg.Topic,
		})
	}
	return s, nil
}

// NewSinkWithWriter wraps an existing writer, typically a test double.
func NewSinkWithWriter(cfg Config, w Writer) *Sink {
	return &Sink{cfg: cfg.withDefaults(), writer: w}
}

// WithObserver attaches an observer notified after every publish.
func (s *Sink) WithObserver(observer observability.Observer) *Sink {
	s.observer = observer
	return s
}

// WithCarrier makes Publish attach the trace context of its ctx as headers.
func (s *Sink) WithCarrier(carrier Carrier) *Sink {
	s.carrier = carrier
	return s
}

// Topic returns the destination topic.
func (s *Sink) Topic() string {
	return s.cfg.Topic
}

// Publish sends result as one message keyed by its batch ID.
func (s *Sink) Publish(ctx context.Context, result *dispatcher.BatchResult) error {
	if result == nil {
		return fmt.Errorf("sink: nil result")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	var headers map[string]string
	if s.carrier != nil {
		headers = s.carrier.GetCarrier(ctx)
	}
	msg, err := EncodeMessage(result, headers)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.writer.WriteMessages(ctx, msg)
	s.observe(result.BatchID, time.Since(start), len(msg.Value), err)
	if err != nil {
		return fmt.Errorf("sink: publish batch %q: %w", result.BatchID, err)
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.writer.Close()
}

func (s *Sink) observe(batchID string, d time.Duration, size int, err error) {
	if s.observer == nil {
		return
	}
	s.observer.ObserveOperation(observability.OperationContext{
		Component:   "sink",
		Operation:   "publish",
		Resource:    s.cfg.Topic,
		SubResource: batchID,
		Duration:    d,
		Error:       err,
		Size:        int64(size),
	})
}

// Discard is a Publisher that drops every result.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Publish(context.Context, *dispatcher.BatchResult) error { return nil }

func createErrorLogger(logger Logger) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		if logger == nil {
			return
		}
		logger.Error("Kafka internal error", nil, map[string]interface{}{
			"error": fmt.Sprintf(msg, args...),
		})
	}
}

func createWriter(cfg Config, tlsConfig *tls.Config, mechanism sasl.Mechanism, logger Logger) *kafka.Writer {
	writerConfig := kafka.WriterConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		MaxAttempts:  cfg.MaxAttempts,
		WriteTimeout: cfg.WriteTimeout,
		RequiredAcks: cfg.RequiredAcks,
		ErrorLogger:  createErrorLogger(logger),
		Dialer: &kafka.Dialer{
			Timeout:       10 * time.Second,
			DualStack:     true,
			TLS:           tlsConfig,
			SASLMechanism: mechanism,
		},
	}

	// A synchronous Publish carries one message, so the batch must flush on
	// its own instead of waiting out BatchTimeout.
	writerConfig.BatchSize = 1
	writerConfig.BatchTimeout = cfg.BatchTimeout
	if cfg.Async {
		writerConfig.Async = true
		writerConfig.BatchSize = cfg.BatchSize
	}

	switch cfg.Compression {
	case "gzip":
		writerConfig.CompressionCodec = &compress.GzipCodec
	case "snappy":
		writerConfig.CompressionCodec = &compress.SnappyCodec
	case "lz4":
		writerConfig.CompressionCodec = &compress.Lz4Codec
	case "zstd":
		writerConfig.CompressionCodec = &compress.ZstdCodec
	}

	return kafka.NewWriter(writerConfig)
}

func createTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		InsecureSkipVerify: cfg.InsecureSkipVerify, //nolint:gosec
	}

	if cfg.CACertPath != "" {
		caCert, err := os.ReadFile(cfg.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if cfg.ClientCertPath != "" && cfg.ClientKeyPath != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCertPath, cfg.ClientKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

func createSASLMechanism(cfg SASLConfig) (sasl.Mechanism, error) {
	switch cfg.Mechanism {
	case "PLAIN":
		return plain.Mechanism{Username: cfg.Username, Password: cfg.Password}, nil
	case "SCRAM-SHA-256":
		return scram.Mechanism(scram.SHA256, cfg.Username, cfg.Password)
	case "SCRAM-SHA-512":
		return scram.Mechanism(scram.SHA512, cfg.Username, cfg.Password)
	default:
		return nil, fmt.Errorf("unsupported SASL mechanism: %s", cfg.Mechanism)
	}
}
