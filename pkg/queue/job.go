package queue

import (
	"context"
	"encoding/json"
)

// Job handles one message type.
type Job interface {
	// Name identifies the job in logs.
	Name() string

	// Type is the message type routed to this job.
	Type() string

	// Handle processes the raw JSON payload. A returned error schedules a retry.
	Handle(ctx context.Context, payload json.RawMessage) error
}

// Permanent marks an error that must not be retried.
type Permanent struct{ Err error }

func (p Permanent) Error() string { return "permanent: " + p.Err.Error() }

func (p Permanent) Unwrap() error { return p.Err }
