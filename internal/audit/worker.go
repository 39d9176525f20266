package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultBatchSize     = 64
	defaultFlushInterval = time.Second
)

// Worker drains the inbox and fans batches out to every sink. A failing sink
// is logged and skipped; one slow or broken sink must not lose events for the
// others or stall the form engine.
type Worker struct {
	inbox         <-chan Event
	sinks         []Sink
	logger        *slog.Logger
	batchSize     int
	flushInterval time.Duration
}

func NewWorker(inbox <-chan Event, logger *slog.Logger, sinks ...Sink) *Worker {
	return &Worker{
		inbox:         inbox,
		sinks:         sinks,
		logger:        logger,
		batchSize:     defaultBatchSize,
		flushInterval: defaultFlushInterval,
	}
}

// Run consumes until the context is cancelled, flushing any buffered events
// before returning.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, w.batchSize)
	for {
		select {
		case <-ctx.Done():
			w.flush(batch)
			return ctx.Err()
		case event := <-w.inbox:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (w *Worker) flush(batch []Event) {
	if len(batch) == 0 {
		return
	}
	// Flushing continues during shutdown, so don't inherit the cancelled
	// run context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, sink := range w.sinks {
		if err := sink.Append(ctx, batch); err != nil {
			w.logger.Error("audit sink append failed",
				"events", len(batch),
				"error", err,
			)
		}
	}
}
