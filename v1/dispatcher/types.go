package dispatcher

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// QueryBatch is one logical search request spanning several independent
// partitions. It is built by the caller right before Dispatch and not reused.
type QueryBatch struct {
	// ID correlates the batch with its result. Opaque to the dispatcher.
	ID string `json:"batch_id"`

	// Members holds one sub-request per partition. Must be non-empty and
	// member IDs must be unique.
	Members []QueryMember `json:"members"`

	// Deadline bounds the whole batch, measured once from dispatch start.
	Deadline time.Duration `json:"deadline"`
}

// QueryMember is one partition-scoped sub-request within a batch.
type QueryMember struct {
	// ID identifies the partition, e.g. a collection name.
	ID string `json:"member_id"`

	// Request is sent as-is; the dispatcher never inspects or mutates it.
	Request Request `json:"request"`
}

// Request describes the call to make against the downstream target.
type Request struct {
	// Method defaults to POST when Body is set and GET otherwise.
	Method string `json:"method,omitempty"`

	// Path is resolved against Config.Endpoint. Absolute URLs are used unchanged.
	Path string `json:"path"`

	// Header is copied onto the outgoing request.
	Header http.Header `json:"header,omitempty"`

	// Body is the raw request payload.
	Body []byte `json:"body,omitempty"`
}

// Status is the terminal classification of a member.
type Status int

const (
	// StatusSucceeded means the downstream target returned a response, whatever its status code.
	StatusSucceeded Status = iota + 1
	// StatusFailed means no interpretable response was obtained before the deadline.
	StatusFailed
	// StatusTimedOut means the batch deadline fired before the member resolved.
	StatusTimedOut
)

// String returns the lower-case name of the status.
func (s Status) String() string {
	switch s {
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "succeeded":
		*s = StatusSucceeded
	case "failed":
		*s = StatusFailed
	case "timed_out":
		*s = StatusTimedOut
	default:
		return fmt.Errorf("dispatcher: unknown status %q", text)
	}
	return nil
}

// MemberOutcome is the terminal result of one member.
type MemberOutcome struct {
	MemberID string
	Status   Status

	// StatusCode is the downstream HTTP status. Zero means no response was obtained,
	// which is always the case for StatusTimedOut.
	StatusCode int

	// Latency runs from batch dispatch to this member's resolution, including
	// time spent queued for a pool slot. Capped at the batch deadline.
	Latency time.Duration

	// Error is a machine-readable cause tag, set only for Failed and TimedOut.
	Error string

	// Body is the raw response body, never parsed here.
	Body []byte

	// Truncated reports that Body was cut at Config.MaxResponseBytes.
	Truncated bool
}

// Err returns nil for a succeeded member and a *MemberError otherwise.
func (o MemberOutcome) Err() error {
	if o.Status == StatusSucceeded {
		return nil
	}
	return &MemberError{MemberID: o.MemberID, Status: o.Status, Cause: o.Error}
}

type memberOutcomeJSON struct {
	MemberID   string          `json:"member_id"`
	Status     Status          `json:"status"`
	StatusCode int             `json:"status_code,omitempty"`
	LatencyMs  float64         `json:"latency_ms"`
	Error      string          `json:"error,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	Truncated  bool            `json:"truncated,omitempty"`
}

// MarshalJSON renders latency in milliseconds and embeds JSON bodies verbatim.
// Non-JSON bodies are emitted as a JSON string.
func (o MemberOutcome) MarshalJSON() ([]byte, error) {
	out := memberOutcomeJSON{
		MemberID:   o.MemberID,
		Status:     o.Status,
		StatusCode: o.StatusCode,
		LatencyMs:  durationMs(o.Latency),
		Error:      o.Error,
		Truncated:  o.Truncated,
	}
	if len(o.Body) > 0 {
		if json.Valid(o.Body) && !o.Truncated {
			out.Body = o.Body
		} else {
			raw, err := json.Marshal(string(o.Body))
			if err != nil {
				return nil, err
			}
			out.Body = raw
		}
	}
	return json.Marshal(out)
}

// BatchResult is produced exactly once per Dispatch call and must be treated
// as immutable afterwards.
type BatchResult struct {
	BatchID string

	// Outcomes holds exactly one entry per input member, in input order.
	Outcomes []MemberOutcome

	// TotalLatency runs from dispatch start until every member resolved or the deadline fired.
	TotalLatency time.Duration

	SucceededCount int
	FailedCount    int
	TimedOutCount  int
}

// Outcome looks up the outcome of a member by ID.
func (r *BatchResult) Outcome(memberID string) (MemberOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.MemberID == memberID {
			return o, true
		}
	}
	return MemberOutcome{}, false
}

// Complete reports whether every member succeeded.
func (r *BatchResult) Complete() bool {
	return r.SucceededCount == len(r.Outcomes)
}

// FailureRate is the share of members that did not succeed, in [0, 1].
// Whether a rate is acceptable is left to the caller.
func (r *BatchResult) FailureRate() float64 {
	if len(r.Outcomes) == 0 {
		return 0
	}
	return float64(r.FailedCount+r.TimedOutCount) / float64(len(r.Outcomes))
}

type batchResultJSON struct {
	BatchID        string          `json:"batch_id"`
	TotalLatencyMs float64         `json:"total_latency_ms"`
	Succeeded      int             `json:"succeeded"`
	Failed         int             `json:"failed"`
	TimedOut       int             `json:"timed_out"`
	Outcomes       []MemberOutcome `json:"outcomes"`
}

// MarshalJSON renders the result with millisecond latencies.
func (r BatchResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(batchResultJSON{
		BatchID:        r.BatchID,
		TotalLatencyMs: durationMs(r.TotalLatency),
		Succeeded:      r.SucceededCount,
		Failed:         r.FailedCount,
		TimedOut:       r.TimedOutCount,
		Outcomes:       r.Outcomes,
	})
}

func durationMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Validate reports a *ValidationError if the batch cannot be dispatched.
func (b QueryBatch) Validate() error {
	if len(b.Members) == 0 {
		return &ValidationError{BatchID: b.ID, Reason: "batch has no members"}
	}
	if b.Deadline <= 0 {
		return &ValidationError{BatchID: b.ID, Reason: fmt.Sprintf("deadline must be positive, got %s", b.Deadline)}
	}
	seen := make(map[string]struct{}, len(b.Members))
	for i, m := range b.Members {
		if m.ID == "" {
			return &ValidationError{BatchID: b.ID, Reason: fmt.Sprintf("member [%d] has an empty id", i)}
		}
		if _, dup := seen[m.ID]; dup {
			return &ValidationError{BatchID: b.ID, Reason: fmt.Sprintf("duplicate member id %q", m.ID)}
		}
		seen[m.ID] = struct{}{}
	}
	return nil
}
