package models

import "github.com/google/uuid"

// User is the identity a participant is seated as. Accounts themselves are
// owned by the authentication service; only the display fields live here.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar,omitempty"`
}
