package dispatcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/trace"
)

type memberResult struct {
	index   int
	outcome MemberOutcome
}

// Dispatch issues every member of batch concurrently and waits until each one
// has resolved or the batch deadline fires, whichever comes first.
//
// The deadline is measured once from the moment Dispatch starts. Members still
// pending when it fires are reported as StatusTimedOut and their in-flight
// requests are cancelled; Dispatch never waits for them to wind down.
// Cancelling ctx ends the batch early in the same way.
//
// A malformed batch is rejected with a *ValidationError before any request is
// sent. Every other problem is reported per member in the result.
func (d *Dispatcher) Dispatch(ctx context.Context, batch QueryBatch) (*BatchResult, error) {
	if err := batch.Validate(); err != nil {
		d.logWarn(ctx, "rejected batch", err, map[string]interface{}{
			"batch_id": batch.ID,
			"members":  len(batch.Members),
		})
		return nil, err
	}

	t0 := time.Now()
	batchCtx, cancel := context.WithDeadline(ctx, t0.Add(batch.Deadline))
	defer cancel()

	var span trace.Span
	if d.tracer != nil {
		batchCtx, span = d.tracer.StartSpan(batchCtx, "fanout.dispatch")
		defer span.End()
		d.tracer.SetAttributes(span, map[string]interface{}{
			"fanout.batch_id":    batch.ID,
			"fanout.members":     len(batch.Members),
			"fanout.deadline_ms": batch.Deadline.Milliseconds(),
		})
	}

	n := len(batch.Members)
	results := make(chan memberResult, n)
	acquired := make([]atomic.Bool, n)

	for i := range batch.Members {
		go func(i int) {
			outcome := d.runMember(batchCtx, t0, batch.Deadline, batch.Members[i], &acquired[i])
			results <- memberResult{index: i, outcome: outcome}
		}(i)
	}

	outcomes := make([]MemberOutcome, n)
	resolved := make([]bool, n)
	remaining := n

collect:
	for remaining > 0 {
		select {
		case r := <-results:
			outcomes[r.index] = r.outcome
			resolved[r.index] = true
			remaining--
		case <-batchCtx.Done():
			break collect
		}
	}

	// Results that landed in the same instant the deadline fired are kept.
drain:
	for remaining > 0 {
		select {
		case r := <-results:
			outcomes[r.index] = r.outcome
			resolved[r.index] = true
			remaining--
		default:
			break drain
		}
	}

	if remaining > 0 {
		elapsed := time.Since(t0)
		if elapsed > batch.Deadline {
			elapsed = batch.Deadline
		}
		cause := timeoutCause(batchCtx)
		for i, done := range resolved {
			if done {
				continue
			}
			memberCause := cause
			if cause == CauseDeadlineExceeded && !acquired[i].Load() {
				memberCause = CausePoolExhausted
			}
			outcomes[i] = MemberOutcome{
				MemberID: batch.Members[i].ID,
				Status:   StatusTimedOut,
				Latency:  elapsed,
				Error:    memberCause,
			}
		}
	}

	result := &BatchResult{
		BatchID:      batch.ID,
		Outcomes:     outcomes,
		TotalLatency: time.Since(t0),
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			result.SucceededCount++
		case StatusFailed:
			result.FailedCount++
		case StatusTimedOut:
			result.TimedOutCount++
		}
		d.observeMember(batch.ID, o)
	}
	d.observeBatch(result)

	if span != nil {
		d.tracer.SetAttributes(span, map[string]interface{}{
			"fanout.succeeded": result.SucceededCount,
			"fanout.failed":    result.FailedCount,
			"fanout.timed_out": result.TimedOutCount,
		})
		if result.TimedOutCount > 0 {
			d.tracer.RecordErrorOnSpan(span, fmt.Errorf("%d of %d members timed out", result.TimedOutCount, n))
		}
	}

	fields := map[string]interface{}{
		"batch_id":         batch.ID,
		"members":          n,
		"succeeded":        result.SucceededCount,
		"failed":           result.FailedCount,
		"timed_out":        result.TimedOutCount,
		"total_latency_ms": result.TotalLatency.Milliseconds(),
	}
	if result.Complete() {
		d.logInfo(batchCtx, "batch dispatched", nil, fields)
	} else {
		d.logWarn(batchCtx, "batch dispatched with incomplete results", nil, fields)
	}

	return result, nil
}

// runMember performs one member request end to end and classifies the result.
// It runs on its own goroutine and must return once ctx is done.
func (d *Dispatcher) runMember(ctx context.Context, t0 time.Time, deadline time.Duration, m QueryMember, acquired *atomic.Bool) MemberOutcome {
	outcome := MemberOutcome{MemberID: m.ID}

	if d.tracer != nil {
		var span trace.Span
		ctx, span = d.tracer.StartSpan(ctx, "fanout.member")
		defer span.End()
		d.tracer.SetAttributes(span, map[string]interface{}{"fanout.member_id": m.ID})
		defer func() {
			d.tracer.SetAttributes(span, map[string]interface{}{
				"fanout.status":      outcome.Status.String(),
				"fanout.status_code": outcome.StatusCode,
			})
			if err := outcome.Err(); err != nil {
				d.tracer.RecordErrorOnSpan(span, err)
			}
		}()
	}

	req, err := d.buildRequest(ctx, m.Request)
	if err != nil {
		d.logDebug(ctx, "invalid member request", err, map[string]interface{}{"member_id": m.ID})
		outcome.Status = StatusFailed
		outcome.Error = CauseInvalidRequest
		outcome.Latency = time.Since(t0)
		return outcome
	}

	if err := d.pool.Acquire(ctx); err != nil {
		outcome.Latency = capLatency(time.Since(t0), deadline)
		if errors.Is(err, ErrPoolClosed) {
			outcome.Status = StatusFailed
			outcome.Error = CausePoolClosed
			return outcome
		}
		outcome.Status = StatusTimedOut
		outcome.Error = CausePoolExhausted
		if errors.Is(err, context.Canceled) {
			outcome.Error = CauseCancelled
		}
		return outcome
	}
	acquired.Store(true)
	defer d.pool.Release()

	resp, err := d.pool.Do(req)
	if err != nil {
		outcome.Latency = capLatency(time.Since(t0), deadline)
		if ctx.Err() != nil {
			outcome.Status = StatusTimedOut
			outcome.Error = timeoutCause(ctx)
			return outcome
		}
		outcome.Status = StatusFailed
		outcome.Error = classifyTransportError(err)
		d.logDebug(ctx, "member request failed", err, map[string]interface{}{
			"member_id": m.ID,
			"cause":     outcome.Error,
		})
		return outcome
	}
	defer resp.Body.Close()

	body, truncated, err := readBody(resp.Body, d.cfg.MaxResponseBytes)
	latency := time.Since(t0)
	if err != nil {
		outcome.Latency = capLatency(latency, deadline)
		if ctx.Err() != nil {
			outcome.Status = StatusTimedOut
			outcome.Error = timeoutCause(ctx)
			return outcome
		}
		outcome.Status = StatusFailed
		outcome.StatusCode = resp.StatusCode
		outcome.Error = CauseMalformedResponse
		return outcome
	}

	// A response that lands after the deadline is late, not successful.
	if latency > deadline {
		outcome.Status = StatusTimedOut
		outcome.Error = CauseDeadlineExceeded
		outcome.Latency = deadline
		return outcome
	}

	outcome.Status = StatusSucceeded
	outcome.StatusCode = resp.StatusCode
	outcome.Latency = latency
	outcome.Body = body
	outcome.Truncated = truncated
	return outcome
}

func (d *Dispatcher) buildRequest(ctx context.Context, r Request) (*http.Request, error) {
	method := r.Method
	if method == "" {
		method = http.MethodGet
		if len(r.Body) > 0 {
			method = http.MethodPost
		}
	}

	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, d.resolveURL(r.Path), body)
	if err != nil {
		return nil, err
	}

	for k, vs := range r.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if len(r.Body) > 0 && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if d.cfg.APIKey != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+d.cfg.APIKey)
	}
	if d.tracer != nil {
		d.tracer.InjectHeaders(ctx, req.Header)
	}
	return req, nil
}

func (d *Dispatcher) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if path == "" {
		return d.endpoint
	}
	return d.endpoint + "/" + strings.TrimLeft(path, "/")
}

// readBody reads at most limit bytes. The second return value reports whether
// the body was longer than that.
func readBody(r io.Reader, limit int64) ([]byte, bool, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(body)) > limit {
		return body[:limit], true, nil
	}
	return body, false, nil
}

func capLatency(latency, deadline time.Duration) time.Duration {
	if latency > deadline {
		return deadline
	}
	return latency
}
