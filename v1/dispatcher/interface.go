package dispatcher

import "context"

// Client dispatches batches of independent sub-requests concurrently.
//
// This interface is implemented by the concrete *Dispatcher type.
type Client interface {
	// Dispatch issues every member of the batch concurrently and returns one
	// outcome per member no later than the batch deadline plus a small
	// scheduling overhead. The only error it returns is a *ValidationError.
	Dispatch(ctx context.Context, batch QueryBatch) (*BatchResult, error)
}
