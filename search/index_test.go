package search

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"dmcore/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestIndex_AddAndSearch(t *testing.T) {
	req := require.New(t)
	index, err := OpenIndex(t.TempDir(), slog.Default())
	req.NoError(err)
	defer index.Close()

	channel := domain.ChannelID("alice_bob")
	messages := []domain.Message{
		{ID: uuid.New(), Sender: "alice", Receiver: "bob", Text: "the invoice is ready", SentAt: time.Now().UTC()},
		{ID: uuid.New(), Sender: "bob", Receiver: "alice", Text: "thanks, sending payment", SentAt: time.Now().UTC().Add(time.Second)},
	}
	for _, msg := range messages {
		req.NoError(index.Add(channel, msg))
	}
	// Same term in another channel must not leak into channel-scoped results
	other := domain.Message{ID: uuid.New(), Sender: "alice", Receiver: "clara", Text: "another invoice", SentAt: time.Now().UTC()}
	req.NoError(index.Add("alice_clara", other))

	hits, err := index.Search(context.Background(), Query{Terms: "invoice", Channel: channel, Limit: 10})
	req.NoError(err)
	req.Len(hits, 1)
	req.Equal(messages[0].ID.String(), hits[0].ID)
	req.Equal("alice", hits[0].Sender)
	req.Equal("the invoice is ready", hits[0].Text)

	// Unscoped search sees both channels
	hits, err = index.Search(context.Background(), Query{Terms: "invoice", Limit: 10})
	req.NoError(err)
	req.Len(hits, 2)
}

func TestParseQuery(t *testing.T) {
	req := require.New(t)

	query := ParseQuery(`/find "invoice" --channel alice_bob --lang en --limit 5`)
	req.Equal("invoice", query.Terms)
	req.Equal(domain.ChannelID("alice_bob"), query.Channel)
	req.Equal("en", query.Lang)
	req.Equal(5, query.Limit)

	query = ParseQuery("plain words only")
	req.Equal("plain words only", query.Terms)
	req.Empty(query.Channel)
	req.Equal(10, query.Limit)
}
