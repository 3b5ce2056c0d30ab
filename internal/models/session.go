package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusWaiting       SessionStatus = "waiting"
	StatusPlaying       SessionStatus = "playing"
	StatusPaused        SessionStatus = "paused"
	StatusLevelComplete SessionStatus = "level_complete"
	StatusWon           SessionStatus = "won"
	StatusLost          SessionStatus = "lost"
	StatusCancelled     SessionStatus = "cancelled"
)

// Terminal reports whether no further transition is possible from s.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusWon, StatusLost, StatusCancelled:
		return true
	}
	return false
}

// Difficulty adjusts the number of starting lives.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Session represents a row in the sessions table.
type Session struct {
	ID          uuid.UUID     `json:"id"`
	Status      SessionStatus `json:"status"`
	Level       int           `json:"level"`
	Lives       int           `json:"lives"`
	Shurikens   int           `json:"shurikens"`
	PlayerCount int           `json:"player_count"`
	Difficulty  Difficulty    `json:"difficulty"`

	// RewardedThrough is the highest level whose entry bonus was granted.
	RewardedThrough int `json:"rewarded_through"`

	// Version increases by one on every committed mutation.
	Version int64 `json:"version"`

	CreatedAt time.Time  `json:"created_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}
