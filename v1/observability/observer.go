package observability

import "time"

// Observer receives a notification for every completed operation of a component.
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes a single completed operation.
type OperationContext struct {
	// Component is the reporting package, e.g. "dispatcher" or "sink".
	Component string

	// Operation names what was done, e.g. "member", "batch", "publish".
	Operation string

	// Resource is the primary object operated on (batch ID, topic).
	Resource string

	// SubResource narrows Resource down (member ID, message key).
	SubResource string

	// Duration is the wall-clock time the operation took.
	Duration time.Duration

	// Error is non-nil when the operation did not succeed.
	Error error

	// Size is a byte or item count, component specific.
	Size int64

	// Metadata carries component specific details such as status or cause.
	Metadata map[string]interface{}
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx OperationContext)

// ObserveOperation calls f(ctx).
func (f ObserverFunc) ObserveOperation(ctx OperationContext) {
	f(ctx)
}

type multiObserver []Observer

func (m multiObserver) ObserveOperation(ctx OperationContext) {
	for _, o := range m {
		o.ObserveOperation(ctx)
	}
}

// Multi fans a notification out to every non-nil observer, in order.
// It returns nil when no observer is left, so callers can keep their nil checks.
func Multi(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
