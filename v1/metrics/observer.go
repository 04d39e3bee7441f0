package metrics

import (
	"github.com/weavebench/fanout/v1/observability"
)

// Observer translates operation notifications from the other packages into
// Prometheus series.
type Observer struct {
	collector MetricsCollector
}

// NewObserver returns an observability.Observer backed by collector.
//
// Recognised operations:
//   - dispatcher/member and dispatcher/batch
//   - sink/publish
//   - embedding/embed
//   - relay/request
//
// Anything else is ignored.
func NewObserver(collector MetricsCollector) *Observer {
	return &Observer{collector: collector}
}

// ObserveOperation implements observability.Observer.
func (o *Observer) ObserveOperation(op observability.OperationContext) {
	switch op.Component + "/" + op.Operation {
	case "dispatcher/member":
		o.collector.RecordMember(op.SubResource, stringMeta(op, "status"), stringMeta(op, "cause"), op.Duration)
	case "dispatcher/batch":
		o.collector.RecordBatch(batchResult(op), op.Duration, int64Meta(op, "pool_in_flight"))
	case "sink/publish":
		o.collector.RecordPublish(op.Resource, op.Error)
	case "embedding/embed":
		o.collector.RecordEmbedding(op.Resource, op.Duration, op.Error)
	case "relay/request":
		o.collector.RecordRequest(op.Resource, int(int64Meta(op, "code")), op.Duration)
	}
}

func batchResult(op observability.OperationContext) string {
	if op.Error == nil {
		return ResultComplete
	}
	if int64Meta(op, "succeeded") > 0 {
		return ResultPartial
	}
	return ResultFailed
}

func stringMeta(op observability.OperationContext, key string) string {
	v, _ := op.Metadata[key].(string)
	return v
}

func int64Meta(op observability.OperationContext, key string) int64 {
	switch v := op.Metadata[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case int32:
		return int64(v)
	default:
		return 0
	}
}
