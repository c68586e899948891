// Package runtime handles subscription lifecycles and snapshot propagation.
// It orchestrates the system without containing domain rules.
package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"dmcore/contract"
	"dmcore/domain"
	"dmcore/domain/event"
	"dmcore/errors"
	"dmcore/moderation"
	"dmcore/repositories"
	"dmcore/runtime/workers"
	"dmcore/search"
)

// Exchange is the subscription/notification engine. Sends flow through
// moderation into the append-only store; every committed append triggers a
// fresh full-history snapshot to the live subscribers of the channel.
type Exchange struct {
	log        *slog.Logger
	supervisor contract.ISupervisor
	registry   *Registry
	messages   repositories.IMessageRepository
	moderator  *moderation.Moderator // nil disables moderation
	index      *search.Index         // nil disables indexing
	events     chan event.DomainEvent
}

func NewExchange(log *slog.Logger, supervisor contract.ISupervisor, registry *Registry,
	messages repositories.IMessageRepository, moderator *moderation.Moderator,
	index *search.Index, bufferSize int) *Exchange {
	return &Exchange{
		log:        log,
		supervisor: supervisor,
		registry:   registry,
		messages:   messages,
		moderator:  moderator,
		index:      index,
		events:     make(chan event.DomainEvent, bufferSize),
	}
}

// Start registers the fanout worker and runs the supervisor until ctx is
// cancelled. It returns immediately; Stop or ctx cancellation tears the
// workers down.
func (e *Exchange) Start(ctx context.Context) {
	fanout := workers.NewSnapshotFanout(e.log, e.registry, e.messages, e.events)
	e.supervisor.Add(fanout)
	go e.supervisor.Run(ctx)
}

func (e *Exchange) Stop() {
	e.supervisor.Stop()
}

// Subscribe opens a live feed on a channel. The full current history is
// delivered as the first snapshot before Subscribe returns; afterwards
// every committed append triggers another full snapshot. If the initial
// read fails, onError is invoked once with ErrSubscriptionFailed, no
// retry is attempted, and the returned handle is already released (the
// caller decides whether to re-subscribe).
func (e *Exchange) Subscribe(channel domain.ChannelID, onSnapshot contract.SnapshotFunc,
	onError contract.ErrorFunc) contract.SubscriptionHandle {
	sub := newSubscription(channel, onSnapshot, onError, e.registry.Unregister)

	history, err := e.messages.ReadAll(channel)
	if err != nil {
		e.log.Warn("Subscription failed", "channel", channel, "error", err)
		sub.fail(fmt.Errorf("%w: %v", errors.ErrSubscriptionFailed, err))
		return sub
	}

	e.registry.Register(sub)
	sub.Deliver(domain.Snapshot{Channel: channel, Messages: history})
	return sub
}

// Send appends one message: moderation, durable append, index update,
// then a fanout event. Append failures propagate to the caller; an index
// failure is logged and swallowed because the store stays the source of
// truth.
func (e *Exchange) Send(ctx context.Context, cmd domain.AppendCommand) (domain.Message, error) {
	if err := cmd.Validate(); err != nil {
		return domain.Message{}, err
	}

	text := cmd.Text
	if e.moderator != nil {
		censored, foundWords := e.moderator.Censor(text)
		if len(foundWords) > 0 {
			e.log.Info("Message censored", "channel", cmd.Channel, "words", len(foundWords))
		}
		text = censored
	}

	msg, err := e.messages.Append(cmd.Channel, cmd.Sender, cmd.Receiver, text)
	if err != nil {
		return domain.Message{}, err
	}

	if e.index != nil {
		if err := e.index.Add(cmd.Channel, msg); err != nil {
			e.log.Warn("Index update failed", "channel", cmd.Channel, "error", err)
		}
	}

	select {
	case e.events <- toAppendedEvent(cmd.Channel, msg):
	case <-ctx.Done():
		// The message is committed; subscribers catch up on the next
		// fanout for this channel.
		return msg, ctx.Err()
	}
	return msg, nil
}

func toAppendedEvent(channel domain.ChannelID, msg domain.Message) event.MessageAppended {
	return event.MessageAppended{
		ID:       msg.ID,
		Channel:  channel,
		Sender:   msg.Sender,
		Receiver: msg.Receiver,
		Text:     msg.Text,
		At:       msg.SentAt,
	}
}
