package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryKind labels an audit entry.
type HistoryKind string

const (
	HistorySessionCreated    HistoryKind = "session_created"
	HistoryPlayerJoined      HistoryKind = "player_joined"
	HistoryGameStarted       HistoryKind = "game_started"
	HistoryLevelDealt        HistoryKind = "level_dealt"
	HistoryCardPlayed        HistoryKind = "card_played"
	HistoryErrorCard         HistoryKind = "error_card"
	HistoryLifeLost          HistoryKind = "life_lost"
	HistoryShurikenRequested HistoryKind = "shuriken_requested"
	HistoryShurikenUsed      HistoryKind = "shuriken_used"
	HistoryPaused            HistoryKind = "paused"
	HistoryResumed           HistoryKind = "resumed"
	HistoryLevelComplete     HistoryKind = "level_complete"
	HistoryBonus             HistoryKind = "bonus"
	HistoryWon               HistoryKind = "won"
	HistoryLost              HistoryKind = "lost"
	HistoryCancelled         HistoryKind = "cancelled"
)

// HistoryEntry is one append-only record of something that happened in a session.
type HistoryEntry struct {
	SessionID uuid.UUID              `json:"session_id"`
	Level     int                    `json:"level"`
	Kind      HistoryKind            `json:"kind"`
	ActorID   uuid.UUID              `json:"actor_id"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}
