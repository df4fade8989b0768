package event

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Recorder is what producers of compliance events depend on. The identity
// registry and the transfer coordinator record events through this without
// knowing how they are persisted or fanned out.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Store persists compliance events.
type Store interface {
	Append(ctx context.Context, ev *Event) error
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	List(ctx context.Context, filter Filter) (events []*Event, total int, err error)
	Resolve(ctx context.Context, id uuid.UUID, by string, at time.Time) error
}

// Publisher fans events out to an external sink, e.g. Kafka.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close()
}
