// Package sink publishes dispatch results to Kafka for downstream reporting.
//
// Every BatchResult becomes one message on the configured topic. The key is
// the batch ID and the value is the result's JSON encoding. When a Carrier is
// attached, the active trace context travels in the message headers.
//
// Basic Usage:
//
//	s, err := sink.NewSink(sink.Config{
//		Enabled: true,
//		Brokers: []string{"localhost:9092"},
//		Topic:   "fanout.batch-results",
//	}, log)
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//
//	result, _ := d.Dispatch(ctx, batch)
//	if err := s.Publish(ctx, result); err != nil {
//		log.Error("publish failed", err, nil)
//	}
//
// Configuration:
//
//	SINK_KAFKA_ENABLED=true
//	SINK_KAFKA_BROKERS=localhost:9092,localhost:9093
//	SINK_KAFKA_TOPIC=fanout.batch-results
//	SINK_KAFKA_COMPRESSION=snappy
//	SINK_KAFKA_TLS_ENABLED=true
//	SINK_KAFKA_SASL_ENABLED=true
//	SINK_KAFKA_SASL_MECHANISM=SCRAM-SHA-512
//
// When the sink is disabled the FX module provides Discard, so callers can
// publish unconditionally.
//
// Publish is safe for concurrent use. Close should only be called once.
package sink
