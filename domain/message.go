package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message is an immutable record in a channel's append-only log.
// SentAt is assigned by the store at write time, never by the client,
// so a single authoritative ordering exists per channel.
type Message struct {
	ID       uuid.UUID
	Sender   Participant
	Receiver Participant
	Text     string
	SentAt   time.Time
}

// Snapshot carries the complete current ordered message list for a channel.
// Observers always receive full state, never partial diffs.
type Snapshot struct {
	Channel  ChannelID
	Messages []Message
}
