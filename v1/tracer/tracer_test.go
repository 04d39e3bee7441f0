package tracer

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newRecordedTracer() (*Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	return NewClientWithProcessor(Config{ServiceName: "test", AppEnv: "test"}, recorder), recorder
}

func TestStartSpanNestsUnderParent(t *testing.T) {
	tr, recorder := newRecordedTracer()

	ctx, parent := tr.StartSpan(context.Background(), "fanout.dispatch")
	_, child := tr.StartSpan(ctx, "fanout.member")
	child.End()
	parent.End()

	spans := recorder.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, "fanout.member", spans[0].Name())
	assert.Equal(t, "fanout.dispatch", spans[1].Name())
	assert.Equal(t, spans[1].SpanContext().SpanID(), spans[0].Parent().SpanID())
	assert.Equal(t, spans[1].SpanContext().TraceID(), spans[0].SpanContext().TraceID())
}

func TestSetAttributesAndErrors(t *testing.T) {
	tr, recorder := newRecordedTracer()

	_, span := tr.StartSpan(context.Background(), "fanout.member")
	tr.SetAttributes(span, map[string]interface{}{
		"fanout.member_id":   "SongLyrics",
		"fanout.status_code": 200,
		"fanout.bytes":       int64(512),
		"fanout.ratio":       0.5,
		"fanout.truncated":   false,
		"fanout.status":      struct{ S string }{"x"},
	})
	tr.SetAttributes(span, nil)
	tr.RecordErrorOnSpan(span, errors.New("connection_refused"))
	span.End()

	s := recorder.Ended()[0]
	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range s.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "SongLyrics", attrs["fanout.member_id"].AsString())
	assert.Equal(t, int64(200), attrs["fanout.status_code"].AsInt64())
	assert.Equal(t, int64(512), attrs["fanout.bytes"].AsInt64())
	assert.Equal(t, 0.5, attrs["fanout.ratio"].AsFloat64())
	assert.False(t, attrs["fanout.truncated"].AsBool())
	assert.Equal(t, "{x}", attrs["fanout.status"].AsString())

	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "connection_refused", s.Status().Description)
	require.Len(t, s.Events(), 1)
}

func TestHeaderPropagationRoundTrip(t *testing.T) {
	tr, _ := newRecordedTracer()

	ctx, span := tr.StartSpan(context.Background(), "fanout.member")
	defer span.End()

	header := http.Header{}
	tr.InjectHeaders(ctx, header)
	require.NotEmpty(t, header.Get("Traceparent"))

	received := tr.ExtractHeaders(context.Background(), header)
	_, remote := tr.StartSpan(received, "weaviate.graphql")
	defer remote.End()
	assert.Equal(t, span.SpanContext().TraceID(), remote.SpanContext().TraceID())
}

func TestCarrierRoundTrip(t *testing.T) {
	tr, _ := newRecordedTracer()

	ctx, span := tr.StartSpan(context.Background(), "sink.publish")
	defer span.End()

	carrier := tr.GetCarrier(ctx)
	require.Contains(t, carrier, "traceparent")

	restored := tr.SetCarrierOnContext(context.Background(), carrier)
	_, consumer := tr.StartSpan(restored, "consume")
	defer consumer.End()
	assert.Equal(t, span.SpanContext().TraceID(), consumer.SpanContext().TraceID())
}

func TestNewClientWithoutExport(t *testing.T) {
	tr, err := NewClient(Config{ServiceName: "fanout"}, nil)
	require.NoError(t, err)
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNewConfig(t *testing.T) {
	t.Setenv("TRACER_ENABLE_EXPORT", "true")
	t.Setenv("TRACER_OTLP_ENDPOINT", "collector:4318")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.True(t, cfg.EnableExport)
	assert.Equal(t, "collector:4318", cfg.Endpoint)
	assert.Equal(t, "fanout", cfg.ServiceName)
}
