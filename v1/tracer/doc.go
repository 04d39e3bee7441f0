// Package tracer provides distributed tracing using OpenTelemetry.
//
// It wraps an SDK TracerProvider with a few helpers: span creation, error
// recording, typed attributes, and W3C trace context propagation over HTTP
// headers and plain string maps.
//
// *Tracer satisfies the Tracer interfaces declared by the dispatcher and
// relay packages. The dispatcher opens a "fanout.dispatch" span per batch and
// a "fanout.member" span per member, and injects the trace context into every
// request it sends, so a search engine that understands traceparent joins the
// same trace.
//
// # Usage
//
//	t, err := tracer.NewClient(tracer.Config{
//		ServiceName:  "fanout-relay",
//		AppEnv:       "production",
//		EnableExport: true,
//		Endpoint:     "otel-collector:4318",
//		Insecure:     true,
//	}, log)
//	if err != nil {
//		return err
//	}
//	defer t.Shutdown(context.Background())
//
//	ctx, span := t.StartSpan(ctx, "replay")
//	defer span.End()
//
// # Configuration
//
//	TRACER_SERVICE_NAME=fanout
//	TRACER_APP_ENV=development
//	TRACER_ENABLE_EXPORT=false
//	TRACER_OTLP_ENDPOINT=localhost:4318
//	TRACER_OTLP_INSECURE=true
package tracer
