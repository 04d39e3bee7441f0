package dispatcher

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/weavebench/fanout/v1/observability"
)

// tolerance is the scheduling overhead allowed on top of a batch deadline.
const tolerance = 75 * time.Millisecond

// stubBehavior describes how the stub target answers one member.
type stubBehavior struct {
	delay  time.Duration
	status int
	body   string
	err    error
	hang   bool
}

// stubTarget routes requests by URL path. It honours request cancellation
// the way net/http does.
type stubTarget struct {
	mu        sync.Mutex
	behaviors map[string]stubBehavior

	calls       atomic.Int64
	inFlight    atomic.Int64
	maxInFlight atomic.Int64
}

func newStubTarget(behaviors map[string]stubBehavior) *stubTarget {
	return &stubTarget{behaviors: behaviors}
}

func (s *stubTarget) Do(req *http.Request) (*http.Response, error) {
	s.calls.Add(1)
	cur := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.maxInFlight.Load()
		if cur <= peak || s.maxInFlight.CompareAndSwap(peak, cur) {
			break
		}
	}

	s.mu.Lock()
	b, ok := s.behaviors[strings.TrimPrefix(req.URL.Path, "/")]
	s.mu.Unlock()
	if !ok {
		b = stubBehavior{status: http.StatusNotFound}
	}

	ctx := req.Context()
	if b.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if b.delay > 0 {
		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if b.err != nil {
		return nil, b.err
	}
	status := b.status
	if status == 0 {
		status = http.StatusOK
	}
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(b.body)),
		Request:    req,
	}, nil
}

// stubbornTarget ignores cancellation entirely and answers after delay.
type stubbornTarget struct {
	delay time.Duration
}

func (s stubbornTarget) Do(req *http.Request) (*http.Response, error) {
	time.Sleep(s.delay)
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(strings.NewReader("{}"))}, nil
}

func refusedErr() error {
	return &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &os.SyscallError{Syscall: "connect", Err: syscall.ECONNREFUSED},
	}
}

func member(id string) QueryMember {
	return QueryMember{ID: id, Request: Request{Path: "/" + id, Body: []byte(`{"query":"{}"}`)}}
}

func newStubDispatcher(capacity int, target Doer) *Dispatcher {
	cfg := DefaultConfig()
	cfg.MaxConnections = capacity
	return NewDispatcher(cfg, NewPoolWithDoer(capacity, target))
}

// TestObserver is a mock observer for testing
type TestObserver struct {
	mu         sync.Mutex
	operations []observability.OperationContext
}

func (t *TestObserver) ObserveOperation(ctx observability.OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []observability.OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]observability.OperationContext{}, t.operations...)
}

// recordingTracer records span names and header injections.
type recordingTracer struct {
	mu       sync.Mutex
	spans    []string
	errors   int
	injected int
	tracer   trace.Tracer
}

func newRecordingTracer() *recordingTracer {
	return &recordingTracer{tracer: noop.NewTracerProvider().Tracer("test")}
}

func (r *recordingTracer) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	r.mu.Lock()
	r.spans = append(r.spans, name)
	r.mu.Unlock()
	return r.tracer.Start(ctx, name)
}

func (r *recordingTracer) RecordErrorOnSpan(span trace.Span, err error) {
	r.mu.Lock()
	r.errors++
	r.mu.Unlock()
}

func (r *recordingTracer) SetAttributes(span trace.Span, attrs map[string]interface{}) {}

func (r *recordingTracer) InjectHeaders(ctx context.Context, header http.Header) {
	r.mu.Lock()
	r.injected++
	r.mu.Unlock()
	header.Set("Traceparent", "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01")
}

func (r *recordingTracer) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.spans {
		if s == name {
			n++
		}
	}
	return n
}
