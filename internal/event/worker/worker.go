// Package worker drains recorded events to the external publisher off the
// request path.
package worker

import (
	"context"
	"log/slog"

	"tokengate/internal/event"
)

// Worker consumes events from a channel and fans them out. Publish failures
// are logged and skipped: the store already holds the durable copy.
type Worker struct {
	publisher event.Publisher
	inbox     <-chan event.Event
	logger    *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func New(publisher event.Publisher, inbox <-chan event.Event, opts ...Option) *Worker {
	w := &Worker{publisher: publisher, inbox: inbox}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-w.inbox:
			if err := w.publisher.Publish(ctx, ev); err != nil {
				if w.logger != nil {
					w.logger.ErrorContext(ctx, "event publish failed",
						"event_id", ev.ID, "type", string(ev.Type), "error", err)
				}
			}
		}
	}
}
