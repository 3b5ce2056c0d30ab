package models

import (
	"time"

	"github.com/google/uuid"
)

// AdminSeat is the seat position holding lifecycle rights over a session.
const AdminSeat = 1

// Participant is a user seated in one session.
type Participant struct {
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Seat      int       `json:"seat"`
	Name      string    `json:"name"`
	Avatar    string    `json:"avatar,omitempty"`
	JoinedAt  time.Time `json:"joined_at"`
}

// IsAdmin reports whether the participant holds the admin seat.
func (p Participant) IsAdmin() bool {
	return p.Seat == AdminSeat
}
