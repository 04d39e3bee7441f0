// Package dispatcher fans one logical query out to many independent partitions
// of a downstream HTTP service and joins the answers under a single deadline.
//
// A QueryBatch carries one QueryMember per partition (typically one per
// collection of a vector database) and a deadline. Dispatch issues every
// member concurrently, waits until all of them resolve or the deadline fires,
// and returns a BatchResult with exactly one MemberOutcome per member, in the
// order the members were given.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - Client interface: Defines the Dispatch contract
//   - Dispatcher struct: Concrete implementation of the Client interface
//   - Pool struct: The bounded connection pool shared by every batch
//   - NewDispatcher constructor: Returns *Dispatcher (concrete type)
//   - FX module: Provides *Pool, *Dispatcher and the Client interface
//
// # Outcomes
//
// Every member ends in exactly one of three states:
//   - StatusSucceeded: the target returned an HTTP response before the deadline.
//     Non-2xx responses are still successes; StatusCode tells them apart.
//   - StatusFailed: the request could not produce a response (connection
//     refused, DNS or TLS failure, malformed response). Error holds a cause tag.
//   - StatusTimedOut: the deadline fired first. Error is "deadline_exceeded",
//     "pool_exhausted" when the member never got a connection, or "cancelled"
//     when the caller's context was cancelled.
//
// Partial results are normal. Dispatch returns an error only for malformed
// batches (no members, duplicate member IDs, non-positive deadline), and it
// does so before touching the network.
//
// # Backpressure
//
// The Pool bounds how many member requests are in flight across all
// concurrent batches. Members beyond its capacity wait for a slot, and that
// wait counts against their batch deadline.
//
// # Direct Usage (Without FX)
//
//	cfg := dispatcher.DefaultConfig()
//	cfg.Endpoint = "http://weaviate:8080"
//
//	pool := dispatcher.NewPool(cfg)
//	defer pool.Close()
//
//	d := dispatcher.NewDispatcher(cfg, pool).
//		WithLogger(log).
//		WithObserver(observer)
//
//	result, err := d.Dispatch(ctx, dispatcher.QueryBatch{
//		ID:       "batch-1",
//		Deadline: 500 * time.Millisecond,
//		Members: []dispatcher.QueryMember{
//			{ID: "SongLyrics", Request: dispatcher.Request{Path: "/v1/graphql", Body: q1}},
//			{ID: "SongLyrics_50k", Request: dispatcher.Request{Path: "/v1/graphql", Body: q2}},
//		},
//	})
//
// # Observability
//
// An attached observability.Observer receives one "member" operation per
// member and one "batch" operation per Dispatch call. An attached Tracer opens
// a "fanout.dispatch" span per batch and a "fanout.member" span per member and
// propagates the trace context to the target.
//
// # Thread Safety
//
// A Dispatcher holds no per-batch state and can be shared between goroutines.
package dispatcher
