package workers

import (
	"chatroomd/domain"
	"chatroomd/runtime"
	"context"
	"log/slog"
)

// PruneWorker drains the prune queue of subscribers whose delivery
// failed or timed out and closes their session handles. A dead
// subscriber is removed through its own disconnect path, never
// synchronously during someone else's send.
type PruneWorker struct {
	log      *slog.Logger
	registry *runtime.SessionRegistry
	victims  <-chan domain.SessionID
}

func NewPruneWorker(log *slog.Logger, registry *runtime.SessionRegistry, victims <-chan domain.SessionID) *PruneWorker {
	return &PruneWorker{log: log, registry: registry, victims: victims}
}

func (w *PruneWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return nil
		case id, ok := <-w.victims:
			if !ok {
				return nil
			}
			handle, exists := w.registry.Handle(id)
			if !exists {
				// Already gone, nothing to prune.
				continue
			}
			w.log.Info("Pruning unresponsive subscriber", "session_id", id)
			handle.Close()
		}
	}
}
