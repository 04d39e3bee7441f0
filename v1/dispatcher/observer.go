package dispatcher

import (
	"context"

	"github.com/weavebench/fanout/v1/observability"
)

const componentName = "dispatcher"

// observeMember reports the terminal outcome of one member. Forced timeouts are
// reported too, so the observer sees exactly one call per member.
func (d *Dispatcher) observeMember(batchID string, o MemberOutcome) {
	if d.observer == nil {
		return
	}
	d.observer.ObserveOperation(observability.OperationContext{
		Component:   componentName,
		Operation:   "member",
		Resource:    batchID,
		SubResource: o.MemberID,
		Duration:    o.Latency,
		Error:       o.Err(),
		Size:        int64(len(o.Body)),
		Metadata: map[string]interface{}{
			"status":      o.Status.String(),
			"status_code": o.StatusCode,
			"cause":       o.Error,
		},
	})
}

func (d *Dispatcher) observeBatch(r *BatchResult) {
	if d.observer == nil {
		return
	}
	var err error
	if !r.Complete() {
		err = &BatchIncompleteError{BatchID: r.BatchID, Failed: r.FailedCount, TimedOut: r.TimedOutCount}
	}
	d.observer.ObserveOperation(observability.OperationContext{
		Component: componentName,
		Operation: "batch",
		Resource:  r.BatchID,
		Duration:  r.TotalLatency,
		Error:     err,
		Size:      int64(len(r.Outcomes)),
		Metadata: map[string]interface{}{
			"succeeded":      r.SucceededCount,
			"failed":         r.FailedCount,
			"timed_out":      r.TimedOutCount,
			"pool_in_flight": d.pool.InFlight(),
		},
	})
}

func (d *Dispatcher) logDebug(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if d.logger != nil {
		d.logger.DebugWithContext(ctx, msg, err, fields)
	}
}

func (d *Dispatcher) logInfo(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if d.logger != nil {
		d.logger.InfoWithContext(ctx, msg, err, fields)
	}
}

func (d *Dispatcher) logWarn(ctx context.Context, msg string, err error, fields map[string]interface{}) {
	if d.logger != nil {
		d.logger.WarnWithContext(ctx, msg, err, fields)
	}
}
