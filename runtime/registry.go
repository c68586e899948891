package runtime

import (
	"sync"

	"dmcore/contract"
	"dmcore/domain"

	"github.com/google/uuid"
)

// Registry tracks the live subscriptions of each channel. Entries only
// exist while at least one subscription is live: empty channel maps are
// removed on unregister to prevent memory leaks over time.
type Registry struct {
	mu          sync.RWMutex
	subscribers map[domain.ChannelID]map[uuid.UUID]*Subscription
}

func NewRegistry() *Registry {
	return &Registry{
		subscribers: make(map[domain.ChannelID]map[uuid.UUID]*Subscription),
	}
}

// SinksFor returns the delivery sinks of every live subscription on a
// channel. Returns nil for a channel nobody watches.
func (r *Registry) SinksFor(channel domain.ChannelID) []contract.SnapshotSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs, ok := r.subscribers[channel]
	if !ok {
		return nil
	}
	sinks := make([]contract.SnapshotSink, 0, len(subs))
	for _, sub := range subs {
		sinks = append(sinks, sub)
	}
	return sinks
}

func (r *Registry) Register(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[sub.channel]; !ok {
		r.subscribers[sub.channel] = make(map[uuid.UUID]*Subscription)
	}
	r.subscribers[sub.channel][sub.id] = sub
}

func (r *Registry) Unregister(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if subs, ok := r.subscribers[sub.channel]; ok {
		delete(subs, sub.id)

		// If nobody is left on the channel, remove the entry entirely
		if len(subs) == 0 {
			delete(r.subscribers, sub.channel)
		}
	}
}
