package models

import (
	"time"

	"github.com/google/uuid"
)

// CardState is where a dealt card currently sits.
type CardState string

const (
	CardInHand    CardState = "in_hand"
	CardPlayed    CardState = "played"
	CardDiscarded CardState = "discarded"
)

// Card is one numbered card of a level deal.
type Card struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"session_id"`
	Level     int       `json:"level"`
	Value     int       `json:"value"`

	// OwnerID is the holder while in hand and the player who parted with it
	// afterwards. Nil only for cards that were never assigned.
	OwnerID uuid.UUID `json:"owner_id"`
	State   CardState `json:"state"`

	// Error marks a card played while a lower card was still held somewhere.
	Error     bool      `json:"error"`
	ChangedAt time.Time `json:"changed_at"`
}

// InHand reports whether the card is still held by its owner.
func (c *Card) InHand() bool {
	return c.State == CardInHand
}
