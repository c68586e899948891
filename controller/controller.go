// Package controller drives channel selection for a single viewer:
// which conversation is active, whether its history has arrived, and
// the teardown of the previous subscription on every switch.
package controller

import (
	"context"
	"log/slog"
	"sync"

	"dmcore/contract"
	"dmcore/domain"
	"dmcore/errors"
)

type State int

const (
	Idle    State = iota // no peer selected
	Loading              // subscription requested, first snapshot pending
	Live                 // snapshot received at least once
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Live:
		return "live"
	default:
		return "unknown"
	}
}

// Notify reports every state change and snapshot update to the owner of
// the controller (typically a connection handler).
type Notify func(state State, messages []domain.Message)

// NotifyError reports subscription failures; the owner decides whether
// to select the peer again.
type NotifyError func(err error)

// Controller holds at most one live subscription per viewer. Selecting a
// peer releases the previous handle before subscribing to the new channel,
// so listeners can never leak across selections. All transitions and
// callbacks are serialized by the controller mutex: the viewer session is
// a single logical event loop.
type Controller struct {
	log      *slog.Logger
	viewer   domain.Participant
	exchange contract.IExchange
	onUpdate Notify
	onError  NotifyError

	mu       sync.Mutex
	state    State
	peer     domain.Participant
	channel  domain.ChannelID
	handle   contract.SubscriptionHandle
	messages []domain.Message
	epoch    uint64 // bumped on every selection change to drop stale callbacks
}

func NewController(log *slog.Logger, viewer domain.Participant, exchange contract.IExchange,
	onUpdate Notify, onError NotifyError) *Controller {
	return &Controller{
		log:      log,
		viewer:   viewer,
		exchange: exchange,
		onUpdate: onUpdate,
		onError:  onError,
	}
}

// Select activates the conversation with a peer: Idle -> Loading, then
// Live on the first snapshot. Selecting while another channel is active
// tears the old subscription down first.
func (c *Controller) Select(peer domain.Participant) error {
	channel, err := domain.ResolveChannel(c.viewer, peer)
	if err != nil {
		return err
	}

	c.mu.Lock()
	old := c.handle
	c.handle = nil
	c.state = Loading
	c.peer = peer
	c.channel = channel
	c.messages = nil
	c.epoch++
	epoch := c.epoch
	c.mu.Unlock()

	// Release outside the lock: an in-flight delivery may hold the
	// subscription lock while waiting for ours.
	if old != nil {
		old.Release()
	}

	sub := c.exchange.Subscribe(channel,
		func(snap domain.Snapshot) { c.apply(epoch, snap) },
		func(err error) { c.fail(epoch, err) },
	)

	c.mu.Lock()
	if c.epoch != epoch {
		// Superseded by another Select or Deselect while subscribing.
		c.mu.Unlock()
		sub.Release()
		return nil
	}
	c.handle = sub
	c.mu.Unlock()
	return nil
}

// Deselect returns to Idle and releases the live subscription, if any.
// Safe to call in any state.
func (c *Controller) Deselect() {
	c.mu.Lock()
	old := c.handle
	c.handle = nil
	c.state = Idle
	c.peer = ""
	c.channel = ""
	c.messages = nil
	c.epoch++
	c.mu.Unlock()

	if old != nil {
		old.Release()
	}
}

// Send appends a message to the active channel. Only valid in Live: the
// first snapshot proves the subscription works before any write goes out.
func (c *Controller) Send(ctx context.Context, text string) (domain.Message, error) {
	c.mu.Lock()
	if c.state != Live {
		c.mu.Unlock()
		return domain.Message{}, errors.ErrNoActiveChannel
	}
	cmd := domain.AppendCommand{
		Channel:  c.channel,
		Sender:   c.viewer,
		Receiver: c.peer,
		Text:     text,
	}
	c.mu.Unlock()

	return c.exchange.Send(ctx, cmd)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Peer() domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peer
}

// Messages returns a copy of the last observed snapshot.
func (c *Controller) Messages() []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Message(nil), c.messages...)
}

func (c *Controller) apply(epoch uint64, snap domain.Snapshot) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.messages = snap.Messages
	if c.state == Loading {
		c.state = Live
	}
	state := c.state
	messages := append([]domain.Message(nil), c.messages...)
	notify := c.onUpdate
	c.mu.Unlock()

	if notify != nil {
		notify(state, messages)
	}
}

func (c *Controller) fail(epoch uint64, err error) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.log.Warn("Subscription failed, back to idle", "peer", c.peer, "error", err)
	c.handle = nil
	c.state = Idle
	c.peer = ""
	c.channel = ""
	c.messages = nil
	c.epoch++
	notify := c.onError
	c.mu.Unlock()

	if notify != nil {
		notify(err)
	}
}
