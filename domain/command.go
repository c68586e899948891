package domain

import "dmcore/errors"

// AppendCommand asks the exchange to append one message to a channel.
type AppendCommand struct {
	Channel  ChannelID
	Sender   Participant
	Receiver Participant
	Text     string
}

// Validate checks the participant pair. Text limits belong to the store,
// which owns the append contract.
func (c AppendCommand) Validate() error {
	if c.Sender == "" || c.Receiver == "" || c.Sender == c.Receiver {
		return errors.ErrInvalidParticipant
	}
	return nil
}
