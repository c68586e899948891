package domain

import (
	"dmcore/errors"
)

// ChannelID identifies the ordered message log shared by an unordered pair
// of participants. A channel is never created explicitly: it materializes
// in the store on the first append.
type ChannelID string

// ResolveChannel derives the canonical channel id for a pair of participants.
// The result is symmetric: ResolveChannel(a, b) == ResolveChannel(b, a).
// Both identifiers must be non-empty and distinct (no self-channel).
func ResolveChannel(a, b Participant) (ChannelID, error) {
	if a == "" || b == "" || a == b {
		return "", errors.ErrInvalidParticipant
	}
	if b < a {
		a, b = b, a
	}
	return ChannelID(string(a) + "_" + string(b)), nil
}
