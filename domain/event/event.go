package event

import (
	"time"

	"dmcore/domain"

	"github.com/google/uuid"
)

type DomainEvent interface {
	ChannelID() domain.ChannelID
}

// MessageAppended is emitted after a message has been durably committed.
// It triggers a fresh snapshot delivery to every live subscriber of the channel.
type MessageAppended struct {
	ID       uuid.UUID
	Channel  domain.ChannelID
	Sender   domain.Participant
	Receiver domain.Participant
	Text     string
	At       time.Time
}

func (m MessageAppended) ChannelID() domain.ChannelID {
	return m.Channel
}
