package dispatcher

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// Doer executes a single HTTP round trip. *http.Client satisfies it; tests
// substitute stubs with deterministic latency and failures.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Pool is the connection pool shared by every member of every batch.
//
// It pairs a weighted semaphore with an HTTP client whose transport allows at
// most Capacity connections per host. A member must hold a slot for the whole
// round trip, so no more than Capacity requests are ever in flight, and members
// beyond that wait in Acquire until a slot frees or their batch deadline fires.
//
// Pool is safe for concurrent use by multiple in-flight Dispatch calls.
type Pool struct {
	sem       *semaphore.Weighted
	capacity  int64
	inFlight  atomic.Int64
	doer      Doer
	transport *http.Transport

	closeOnce sync.Once
	closed    chan struct{}
}

// NewPool builds a pool with its own tuned http.Transport from cfg.
//
// Example:
//
//	pool := dispatcher.NewPool(dispatcher.Config{MaxConnections: 16})
//	defer pool.Close()
func NewPool(cfg Config) *Pool {
	cfg = cfg.withDefaults()

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxConnections,
		MaxIdleConnsPerHost:   cfg.MaxConnections,
		MaxConnsPerHost:       cfg.MaxConnections,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.DialTimeout,
		ExpectContinueTimeout: time.Second,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	p := newPool(cfg.MaxConnections, &http.Client{Transport: transport})
	p.transport = transport
	return p
}

// NewPoolWithDoer builds a pool of the given capacity around an arbitrary Doer.
// A non-positive capacity falls back to DefaultMaxConnections.
func NewPoolWithDoer(capacity int, doer Doer) *Pool {
	if capacity <= 0 {
		capacity = DefaultMaxConnections
	}
	return newPool(capacity, doer)
}

func newPool(capacity int, doer Doer) *Pool {
	return &Pool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
		doer:     doer,
		closed:   make(chan struct{}),
	}
}

// Acquire blocks until a slot is free, ctx is done, or the pool is closed.
// Every successful Acquire must be paired with exactly one Release.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	p.inFlight.Add(1)
	return nil
}

// Release returns a slot taken by Acquire.
func (p *Pool) Release() {
	p.inFlight.Add(-1)
	p.sem.Release(1)
}

// Do performs the round trip. Callers are expected to hold a slot.
func (p *Pool) Do(req *http.Request) (*http.Response, error) {
	return p.doer.Do(req)
}

// InFlight returns the number of slots currently held.
func (p *Pool) InFlight() int64 {
	return p.inFlight.Load()
}

// Capacity returns the maximum number of concurrent slots.
func (p *Pool) Capacity() int64 {
	return p.capacity
}

// Close stops handing out new slots and drops idle keep-alive connections.
// Requests already in flight are not interrupted.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		if p.transport != nil {
			p.transport.CloseIdleConnections()
		}
	})
}
