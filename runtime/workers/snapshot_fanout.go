package workers

import (
	"context"
	"log/slog"

	"dmcore/contract"
	"dmcore/domain"
	"dmcore/domain/event"
	"dmcore/repositories"
)

// Ensure *SnapshotFanout implements the contract.Worker interface at compile time.
var _ contract.Worker = (*SnapshotFanout)(nil)

// SnapshotFanout turns committed append events into snapshot deliveries.
//
// For every event it re-reads the channel's full history and hands the
// resulting snapshot to each live subscriber. Because the history is read
// after the commit, a snapshot triggered by a later event also carries any
// earlier message whose own event was still queued: a delivery can repeat
// content, never reorder it.
type SnapshotFanout struct {
	log      *slog.Logger
	registry contract.IRegistry
	history  repositories.IMessageRepository
	events   chan event.DomainEvent
}

func NewSnapshotFanout(log *slog.Logger, registry contract.IRegistry,
	history repositories.IMessageRepository, events chan event.DomainEvent) *SnapshotFanout {
	return &SnapshotFanout{log: log, registry: registry, history: history, events: events}
}

func (w *SnapshotFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping worker")
			return ctx.Err()
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(evt.ChannelID())
		}
	}
}

// Fanout delivers the current full history of a channel to its subscribers.
func (w *SnapshotFanout) Fanout(channel domain.ChannelID) {
	messages, err := w.history.ReadAll(channel)
	if err != nil {
		w.log.Warn("Snapshot read failed, subscribers catch up on next append",
			"channel", channel, "error", err)
		return
	}
	snap := domain.Snapshot{Channel: channel, Messages: messages}
	for _, sink := range w.registry.SinksFor(channel) {
		sink.Deliver(snap)
	}
}
