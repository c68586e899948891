package runtime

import (
	"sync"

	"dmcore/contract"
	"dmcore/domain"

	"github.com/google/uuid"
)

// Subscription is a live binding between one observer and one channel's
// ordered message log. Its lifetime is owned by the caller that subscribed,
// never by ambient engine state: dropping the handle without Release leaks
// a live listener.
type Subscription struct {
	id         uuid.UUID
	channel    domain.ChannelID
	onSnapshot contract.SnapshotFunc
	onError    contract.ErrorFunc
	unregister func(*Subscription)

	mu        sync.Mutex
	released  bool
	delivered int // length of the last delivered history
}

func newSubscription(channel domain.ChannelID, onSnapshot contract.SnapshotFunc,
	onError contract.ErrorFunc, unregister func(*Subscription)) *Subscription {
	return &Subscription{
		id:         uuid.New(),
		channel:    channel,
		onSnapshot: onSnapshot,
		onError:    onError,
		unregister: unregister,
	}
}

// Deliver invokes the snapshot callback unless the subscription has been
// released. A snapshot shorter than one already delivered is stale (the
// log is append-only, so history never shrinks) and is dropped; an equal
// length snapshot may be redelivered. The callback runs under the
// subscription lock, so Release blocks until an in-flight delivery
// completes and no delivery starts after Release returns.
func (s *Subscription) Deliver(snap domain.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	if len(snap.Messages) < s.delivered {
		return
	}
	s.delivered = len(snap.Messages)
	if s.onSnapshot != nil {
		s.onSnapshot(snap)
	}
}

// Release detaches the subscription. Idempotent; safe to call while a
// delivery is in flight.
func (s *Subscription) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.unregister != nil {
		s.unregister(s)
	}
}

// fail releases the subscription and surfaces the error once, on the
// error path distinct from snapshot deliveries.
func (s *Subscription) fail(err error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	s.mu.Unlock()

	if s.onError != nil {
		s.onError(err)
	}
}
