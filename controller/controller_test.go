package controller

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dmcore/contract"
	"dmcore/domain"
	"dmcore/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type fakeHandle struct {
	mu       sync.Mutex
	releases int
}

func (h *fakeHandle) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releases++
}

func (h *fakeHandle) released() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.releases
}

// fakeExchange hands out one handle per Subscribe and lets the test decide
// when snapshots or failures reach the subscriber.
type fakeExchange struct {
	mu           sync.Mutex
	history      map[domain.ChannelID][]domain.Message
	onSnapshot   contract.SnapshotFunc
	channel      domain.ChannelID
	handles      []*fakeHandle
	sent         []domain.AppendCommand
	holdSnapshot bool
	failNext     error
}

func newFakeExchange() *fakeExchange {
	return &fakeExchange{history: make(map[domain.ChannelID][]domain.Message)}
}

func (f *fakeExchange) Subscribe(channel domain.ChannelID, onSnapshot contract.SnapshotFunc,
	onError contract.ErrorFunc) contract.SubscriptionHandle {
	f.mu.Lock()
	handle := &fakeHandle{}
	f.handles = append(f.handles, handle)
	if err := f.failNext; err != nil {
		f.failNext = nil
		f.mu.Unlock()
		onError(err)
		return handle
	}
	f.onSnapshot = onSnapshot
	f.channel = channel
	hold := f.holdSnapshot
	snap := domain.Snapshot{Channel: channel, Messages: f.history[channel]}
	f.mu.Unlock()

	if !hold {
		onSnapshot(snap)
	}
	return handle
}

func (f *fakeExchange) Send(ctx context.Context, cmd domain.AppendCommand) (domain.Message, error) {
	f.mu.Lock()
	msg := domain.Message{
		ID: uuid.New(), Sender: cmd.Sender, Receiver: cmd.Receiver,
		Text: cmd.Text, SentAt: time.Now().UTC(),
	}
	f.history[cmd.Channel] = append(f.history[cmd.Channel], msg)
	f.sent = append(f.sent, cmd)
	onSnapshot := f.onSnapshot
	snap := domain.Snapshot{Channel: cmd.Channel, Messages: f.history[cmd.Channel]}
	deliver := onSnapshot != nil && f.channel == cmd.Channel
	f.mu.Unlock()

	if deliver {
		onSnapshot(snap)
	}
	return msg, nil
}

// deliver pushes the current history to the subscriber, simulating the
// initial snapshot of a slow store.
func (f *fakeExchange) deliver() {
	f.mu.Lock()
	onSnapshot := f.onSnapshot
	snap := domain.Snapshot{Channel: f.channel, Messages: f.history[f.channel]}
	f.mu.Unlock()
	onSnapshot(snap)
}

func seed(f *fakeExchange, channel domain.ChannelID, texts ...string) {
	for _, text := range texts {
		f.history[channel] = append(f.history[channel], domain.Message{
			ID: uuid.New(), Sender: "bob", Receiver: "alice", Text: text, SentAt: time.Now().UTC(),
		})
	}
}

func TestController_Starts_Idle_And_Rejects_Send(t *testing.T) {
	req := require.New(t)
	ctrl := NewController(slog.Default(), "alice", newFakeExchange(), nil, nil)

	req.Equal(Idle, ctrl.State())

	_, err := ctrl.Send(context.Background(), "hi")
	req.ErrorIs(err, errors.ErrNoActiveChannel)
}

func TestController_Select_Transitions_Idle_Loading_Live(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()
	exchange.holdSnapshot = true
	seed(exchange, "alice_bob", "one", "two", "three")

	ctrl := NewController(slog.Default(), "alice", exchange, nil, nil)

	// When the peer is selected but the first snapshot has not arrived
	req.NoError(ctrl.Select("bob"))
	req.Equal(Loading, ctrl.State())

	// Send is rejected until the history has loaded
	_, err := ctrl.Send(context.Background(), "too early")
	req.ErrorIs(err, errors.ErrNoActiveChannel)

	// When the initial snapshot arrives
	exchange.deliver()

	// Then the controller is Live with exactly the seeded history in order
	req.Equal(Live, ctrl.State())
	messages := ctrl.Messages()
	req.Len(messages, 3)
	req.Equal("one", messages[0].Text)
	req.Equal("two", messages[1].Text)
	req.Equal("three", messages[2].Text)
}

func TestController_Send_Uses_Resolved_Channel_And_Peer(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()
	ctrl := NewController(slog.Default(), "alice", exchange, nil, nil)

	req.NoError(ctrl.Select("bob"))
	req.Equal(Live, ctrl.State())

	_, err := ctrl.Send(context.Background(), "hi")
	req.NoError(err)

	req.Len(exchange.sent, 1)
	req.Equal(domain.ChannelID("alice_bob"), exchange.sent[0].Channel)
	req.Equal(domain.Participant("alice"), exchange.sent[0].Sender)
	req.Equal(domain.Participant("bob"), exchange.sent[0].Receiver)

	// The subscriber observes its own append in the next snapshot
	req.Len(ctrl.Messages(), 1)
	req.Equal("hi", ctrl.Messages()[0].Text)
}

func TestController_Deselect_Releases_And_Returns_To_Idle(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()
	ctrl := NewController(slog.Default(), "alice", exchange, nil, nil)

	req.NoError(ctrl.Select("bob"))
	req.Equal(Live, ctrl.State())

	ctrl.Deselect()

	req.Equal(Idle, ctrl.State())
	req.Empty(ctrl.Messages())
	req.Len(exchange.handles, 1)
	req.Equal(1, exchange.handles[0].released())

	_, err := ctrl.Send(context.Background(), "hi")
	req.ErrorIs(err, errors.ErrNoActiveChannel)
}

func TestController_Reselect_Releases_Previous_Subscription(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()
	seed(exchange, "alice_clara", "hello clara")
	ctrl := NewController(slog.Default(), "alice", exchange, nil, nil)

	req.NoError(ctrl.Select("bob"))
	req.NoError(ctrl.Select("clara"))

	// At most one live subscription per viewer
	req.Len(exchange.handles, 2)
	req.Equal(1, exchange.handles[0].released())
	req.Zero(exchange.handles[1].released())

	req.Equal(domain.Participant("clara"), ctrl.Peer())
	req.Len(ctrl.Messages(), 1)
}

func TestController_Select_Invalid_Peer(t *testing.T) {
	req := require.New(t)
	ctrl := NewController(slog.Default(), "alice", newFakeExchange(), nil, nil)

	req.ErrorIs(ctrl.Select("alice"), errors.ErrInvalidParticipant)
	req.ErrorIs(ctrl.Select(""), errors.ErrInvalidParticipant)
	req.Equal(Idle, ctrl.State())
}

func TestController_Subscription_Failure_Returns_To_Idle(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()
	exchange.failNext = errors.ErrSubscriptionFailed

	var reported error
	ctrl := NewController(slog.Default(), "alice", exchange, nil, func(err error) { reported = err })

	req.NoError(ctrl.Select("bob"))

	req.Equal(Idle, ctrl.State())
	req.ErrorIs(reported, errors.ErrSubscriptionFailed)

	// The caller decides to re-subscribe; a fresh Select works
	req.NoError(ctrl.Select("bob"))
	req.Equal(Live, ctrl.State())
}

func TestController_Notify_Reports_Updates(t *testing.T) {
	req := require.New(t)
	exchange := newFakeExchange()

	var states []State
	var lengths []int
	notify := func(state State, messages []domain.Message) {
		states = append(states, state)
		lengths = append(lengths, len(messages))
	}
	ctrl := NewController(slog.Default(), "alice", exchange, notify, nil)

	req.NoError(ctrl.Select("bob"))
	_, err := ctrl.Send(context.Background(), "hi")
	req.NoError(err)

	req.Equal([]State{Live, Live}, states)
	req.Equal([]int{0, 1}, lengths)
}
