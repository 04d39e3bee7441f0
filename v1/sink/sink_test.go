package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/weavebench/fanout/v1/dispatcher"
	"github.com/weavebench/fanout/v1/observability"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

type staticCarrier map[string]string

func (c staticCarrier) GetCarrier(context.Context) map[string]string { return c }

func sampleResult() *dispatcher.BatchResult {
	return &dispatcher.BatchResult{
		BatchID: "batch-7",
		Outcomes: []dispatcher.MemberOutcome{
			{MemberID: "A", Status: dispatcher.StatusSucceeded, StatusCode: 200, Latency: 12 * time.Millisecond, Body: []byte(`{"data":{}}`)},
			{MemberID: "B", Status: dispatcher.StatusTimedOut, Latency: time.Second, Error: dispatcher.CauseDeadlineExceeded},
		},
		TotalLatency:   time.Second,
		SucceededCount: 1,
		TimedOutCount:  1,
	}
}

func TestPublishEncodesResult(t *testing.T) {
	w := &fakeWriter{}
	s := NewSinkWithWriter(Config{Topic: "results"}, w).
		WithCarrier(staticCarrier{"traceparent": "00-abc-def-01"})

	require.NoError(t, s.Publish(context.Background(), sampleResult()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "batch-7", string(msg.Key))
	assert.Equal(t, map[string]string{
		HeaderContentType: "application/json",
		"traceparent":     "00-abc-def-01",
	}, Headers(msg))

	var decoded struct {
		BatchID  string `json:"batch_id"`
		TimedOut int    `json:"timed_out"`
		Outcomes []struct {
			MemberID string `json:"member_id"`
			Status   string `json:"status"`
			Error    string `json:"error"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "batch-7", decoded.BatchID)
	assert.Equal(t, 1, decoded.TimedOut)
	require.Len(t, decoded.Outcomes, 2)
	assert.Equal(t, "timed_out", decoded.Outcomes[1].Status)
	assert.Equal(t, "deadline_exceeded", decoded.Outcomes[1].Error)
}

func TestEncodeMessageHeaderOrder(t *testing.T) {
	msg, err := EncodeMessage(sampleResult(), map[string]string{"b": "2", "a": "1"})
	require.NoError(t, err)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, HeaderContentType, msg.Headers[0].Key)
	assert.Equal(t, "a", msg.Headers[1].Key)
	assert.Equal(t, "b", msg.Headers[2].Key)
}

func TestPublishObservesOutcome(t *testing.T) {
	var ops []observability.OperationContext
	observer := observability.ObserverFunc(func(op observability.OperationContext) {
		ops = append(ops, op)
	})

	boom := errors.New("broker down")
	w := &fakeWriter{err: boom}
	s := NewSinkWithWriter(Config{Topic: "results"}, w).WithObserver(observer)

	err := s.Publish(context.Background(), sampleResult())
	require.ErrorIs(t, err, boom)

	require.Len(t, ops, 1)
	assert.Equal(t, "sink", ops[0].Component)
	assert.Equal(t, "publish", ops[0].Operation)
	assert.Equal(t, "results", ops[0].Resource)
	assert.Equal(t, "batch-7", ops[0].SubResource)
	assert.ErrorIs(t, ops[0].Error, boom)
	assert.Positive(t, ops[0].Size)
}

func TestPublishAfterClose(t *testing.T) {
	w := &fakeWriter{}
	s := NewSinkWithWriter(Config{}, w)
	assert.Equal(t, DefaultTopic, s.Topic())

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.True(t, w.closed)

	assert.ErrorIs(t, s.Publish(context.Background(), sampleResult()), ErrClosed)
	assert.Error(t, s.Publish(context.Background(), nil))
}

func TestDiscard(t *testing.T) {
	assert.NoError(t, Discard.Publish(context.Background(), sampleResult()))
}

func TestNewSink(t *testing.T) {
	_, err := NewSink(Config{}, nil)
	assert.Error(t, err)

	_, err = NewSink(Config{Brokers: []string{"localhost:9092"}, SASL: SASLConfig{Enabled: true, Mechanism: "GSSAPI"}}, nil)
	assert.ErrorContains(t, err, "SASL")

	_, err = NewSink(Config{Brokers: []string{"localhost:9092"}, TLS: TLSConfig{Enabled: true, CACertPath: "/nonexistent/ca.pem"}}, nil)
	assert.ErrorContains(t, err, "TLS")

	// the writer connects lazily, so construction succeeds without a broker
	s, err := NewSink(Config{
		Brokers:     []string{"localhost:9092"},
		Compression: "snappy",
		SASL:        SASLConfig{Enabled: true, Mechanism: "SCRAM-SHA-256", Username: "u", Password: "p"},
	}, nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestNewSinkWriterBatching(t *testing.T) {
	s, err := NewSink(Config{Brokers: []string{"localhost:9092"}}, nil)
	require.NoError(t, err)
	defer s.Close()

	w, ok := s.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.False(t, w.Async)
	assert.Equal(t, 1, w.BatchSize, "a single synchronous publish must not wait for a fuller batch")
	assert.Equal(t, DefaultBatchTimeout, w.BatchTimeout)

	async, err := NewSink(Config{Brokers: []string{"localhost:9092"}, Async: true, BatchSize: 25, BatchTimeout: 20 * time.Millisecond}, nil)
	require.NoError(t, err)
	defer async.Close()

	aw, ok := async.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.True(t, aw.Async)
	assert.Equal(t, 25, aw.BatchSize)
	assert.Equal(t, 20*time.Millisecond, aw.BatchTimeout)
}

func TestConfig(t *testing.T) {
	t.Setenv("SINK_KAFKA_ENABLED", "true")
	t.Setenv("SINK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("SINK_KAFKA_TLS_ENABLED", "true")
	t.Setenv("SINK_KAFKA_SASL_MECHANISM", "PLAIN")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.True(t, cfg.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, DefaultTopic, cfg.Topic)
	assert.Equal(t, -1, cfg.RequiredAcks)
	assert.True(t, cfg.TLS.Enabled)
	assert.Equal(t, "PLAIN", cfg.SASL.Mechanism)
	assert.NoError(t, cfg.Validate())

	assert.NoError(t, Config{}.Validate())
	assert.Error(t, Config{Enabled: true, Topic: "t"}.Validate())
	assert.Error(t, Config{Enabled: true, Brokers: []string{"k"}, Topic: "t", RequiredAcks: 2}.Validate())
	assert.Error(t, Config{Enabled: true, Brokers: []string{"k"}, Topic: "t", Compression: "brotli"}.Validate())
}

func TestFXModuleDisabled(t *testing.T) {
	var publisher Publisher
	app := fxtest.New(t,
		fx.Supply(DefaultConfig()),
		FXModule,
		fx.Populate(&publisher),
	)
	app.RequireStart()
	defer app.RequireStop()

	assert.Equal(t, Discard, publisher)
}

func TestFXModuleEnabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = true
	cfg.Brokers = []string{"localhost:9092"}

	var publisher Publisher
	app := fxtest.New(t,
		fx.Supply(cfg),
		FXModule,
		fx.Populate(&publisher),
	)
	app.RequireStart()

	s, ok := publisher.(*Sink)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, s.Topic())

	app.RequireStop()
	assert.ErrorIs(t, s.Publish(context.Background(), sampleResult()), ErrClosed)
}
