// Package domain contains core concepts of the messaging system.
// This file defines Participant identities and directory entries.
// No runtime, network, or UI logic should be added here.
package domain

// Participant is an opaque stable identifier for a user of the messaging core.
// The core never manages login state; identifiers come from the session layer.
type Participant string

// Peer is a selectable directory entry consumed by the selection controller.
type Peer struct {
	ID          Participant
	DisplayName string
	AvatarURL   string
}
