package dispatcher

import (
	"context"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/weavebench/fanout/v1/observability"
)

// Logger is an interface that matches the fanout/v1/logger.LoggerClient methods.
// It provides context-aware structured logging so entries carry the trace and
// span IDs of the batch being dispatched.
//
//go:generate mockgen -source=setup.go -destination=mock_logger.go -package=dispatcher -exclude_interfaces=Tracer
type Logger interface {
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Tracer is the subset of *tracer.Tracer used to trace batches and members.
type Tracer interface {
	StartSpan(ctx context.Context, name string) (context.Context, trace.Span)
	RecordErrorOnSpan(span trace.Span, err error)
	SetAttributes(span trace.Span, attrs map[string]interface{})
	InjectHeaders(ctx context.Context, header http.Header)
}

// Dispatcher fans a QueryBatch out to the downstream target and joins the
// results under the batch deadline.
//
// It holds no per-batch state: the pool is the only shared mutable resource,
// so a single Dispatcher can serve many concurrent Dispatch calls.
//
// Dispatcher implements the Client interface.
type Dispatcher struct {
	cfg      Config
	endpoint string
	pool     *Pool

	logger   Logger
	observer observability.Observer
	tracer   Tracer
}

// NewDispatcher creates a dispatcher that sends requests through pool.
// Zero fields in cfg are replaced by the package defaults.
//
// Example:
//
//	cfg := dispatcher.DefaultConfig()
//	cfg.Endpoint = "http://weaviate:8080"
//	pool := dispatcher.NewPool(cfg)
//	d := dispatcher.NewDispatcher(cfg, pool)
//
//	result, err := d.Dispatch(ctx, batch)
//	if dispatcher.IsValidationError(err) {
//		return err
//	}
//	fmt.Println(result.SucceededCount, result.TimedOutCount)
func NewDispatcher(cfg Config, pool *Pool) *Dispatcher {
	cfg = cfg.withDefaults()
	if pool == nil {
		pool = NewPool(cfg)
	}
	return &Dispatcher{
		cfg:      cfg,
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		pool:     pool,
	}
}

// WithLogger attaches a logger. Returns the dispatcher for chaining.
func (d *Dispatcher) WithLogger(logger Logger) *Dispatcher {
	d.logger = logger
	return d
}

// WithObserver attaches an observer notified once per member and once per batch.
// Returns the dispatcher for chaining.
func (d *Dispatcher) WithObserver(observer observability.Observer) *Dispatcher {
	d.observer = observer
	return d
}

// WithTracer attaches a tracer. Batches and members get their own spans and
// the trace context is propagated in the outgoing request headers.
func (d *Dispatcher) WithTracer(tracer Tracer) *Dispatcher {
	d.tracer = tracer
	return d
}

// Pool returns the shared connection pool.
func (d *Dispatcher) Pool() *Pool {
	return d.pool
}

// Config returns the effective configuration, defaults applied.
func (d *Dispatcher) Config() Config {
	return d.cfg
}
