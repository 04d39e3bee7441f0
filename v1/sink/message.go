package sink

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/segmentio/kafka-go"

	"github.com/weavebench/fanout/v1/dispatcher"
)

// HeaderContentType is set on every message.
const HeaderContentType = "content-type"

// EncodeMessage renders result as a Kafka message. Extra headers are added
// in key order after the content type.
func EncodeMessage(result *dispatcher.BatchResult, headers map[string]string) (kafka.Message, error) {
	value, err := json.Marshal(result)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("sink: encode batch %q: %w", result.BatchID, err)
	}

	msgHeaders := make([]kafka.Header, 0, len(headers)+1)
	msgHeaders = append(msgHeaders, kafka.Header{Key: HeaderContentType, Value: []byte("application/json")})
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		msgHeaders = append(msgHeaders, kafka.Header{Key: k, Value: []byte(headers[k])})
	}

	return kafka.Message{
		Key:     []byte(result.BatchID),
		Value:   value,
		Headers: msgHeaders,
	}, nil
}

// Headers returns the message headers as a map, e.g. for
// tracer.SetCarrierOnContext on the consuming side.
func Headers(msg kafka.Message) map[string]string {
	out := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		out[h.Key] = string(h.Value)
	}
	return out
}
