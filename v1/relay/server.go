package relay

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/observability"
	"github.com/weavebench/fanout/v1/sink"
)

// ReadyPath is the Weaviate readiness endpoint checked by GET /health.
const ReadyPath = "/v1/.well-known/ready"

// Logger is the subset of *logger.LoggerClient used by the relay.
type Logger interface {
	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
}

// Propagator continues a trace carried by incoming request headers.
// *tracer.Tracer satisfies it.
type Propagator interface {
	ExtractHeaders(ctx context.Context, header http.Header) context.Context
}

// Server exposes the dispatcher over HTTP.
type Server struct {
	cfg    Config
	client dispatcher.Client

	endpoint        string
	apiKey          string
	defaultDeadline time.Duration
	health          *http.Client

	publisher  sink.Publisher
	logger     Logger
	observer   observability.Observer
	propagator Propagator
	newID      func() string

	httpServer *http.Server
}

// NewServer builds a relay in front of client. downstream describes the
// target the client dispatches to: its endpoint and API key are used by the
// health check and its DefaultDeadline applies to requests without deadline_ms.
//
// Example:
//
//	d := dispatcher.NewDispatcher(dcfg, nil)
//	srv := relay.NewServer(relay.DefaultConfig(), d, dcfg)
//	go srv.ListenAndServe()
//	defer srv.Shutdown(ctx)
func NewServer(cfg Config, client dispatcher.Client, downstream dispatcher.Config) *Server {
	cfg = cfg.withDefaults()
	deadline := downstream.DefaultDeadline
	if deadline <= 0 {
		deadline = dispatcher.DefaultDeadline
	}
	endpoint := downstream.Endpoint
	if endpoint == "" {
		endpoint = dispatcher.DefaultEndpoint
	}

	s := &Server{
		cfg:             cfg,
		client:          client,
		endpoint:        strings.TrimRight(endpoint, "/"),
		apiKey:          downstream.APIKey,
		defaultDeadline: deadline,
		health:          &http.Client{Timeout: cfg.HealthTimeout},
		newID:           uuid.NewString,
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
	return s
}

// WithPublisher makes every dispatched batch go to p as well.
func (s *Server) WithPublisher(p sink.Publisher) *Server {
	s.publisher = p
	return s
}

// WithLogger attaches a logger. Returns the server for chaining.
func (s *Server) WithLogger(logger Logger) *Server {
	s.logger = logger
	return s
}

// WithObserver attaches an observer notified once per handled request.
func (s *Server) WithObserver(observer observability.Observer) *Server {
	s.observer = observer
	return s
}

// WithPropagator makes handlers continue traces from incoming headers.
func (s *Server) WithPropagator(p Propagator) *Server {
	s.propagator = p
	return s
}

// Handler returns the relay routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET /{$}", s.instrument("root", s.handleRoot))
	mux.Handle("GET /health", s.instrument("health", s.handleHealth))
	mux.Handle("POST /parallel-search", s.instrument("parallel_search", s.handleParallelSearch))
	return mux
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// ListenAndServe blocks serving requests until Shutdown. It returns nil after
// a graceful shutdown.
func (s *Server) ListenAndServe() error {
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(l net.Listener) error {
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
