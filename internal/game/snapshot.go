// internal/game/snapshot.go
package game

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// HandCard is a card the viewer holds. Other players' values are never exposed.
type HandCard struct {
	ID    uuid.UUID `json:"id"`
	Value int       `json:"value"`
}

// PlayedCard is a card on the table for the current level.
type PlayedCard struct {
	ID         uuid.UUID `json:"id"`
	Value      int       `json:"value"`
	PlayerName string    `json:"playerName"`
	Timestamp  time.Time `json:"timestamp"`
	ErrorCard  bool      `json:"errorCard"`
}

// PlayerView is the public view of one seated player.
type PlayerView struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Avatar            string    `json:"avatar,omitempty"`
	Seat              int       `json:"seat"`
	HandCount         int       `json:"handCount"`
	IsAdmin           bool      `json:"isAdmin"`
	ShurikenRequested bool      `json:"shurikenRequested"`
}

// Snapshot is the state of a session as seen by one user.
type Snapshot struct {
	SessionID        uuid.UUID            `json:"sessionId"`
	Status           models.SessionStatus `json:"status"`
	Level            int                  `json:"level"`
	MaxLevel         int                  `json:"maxLevel"`
	Lives            int                  `json:"lives"`
	Shurikens        int                  `json:"shurikens"`
	Version          int64                `json:"version"`
	PlayerCount      int                  `json:"playerCount"`
	Difficulty       models.Difficulty    `json:"difficulty"`
	Hand             []HandCard           `json:"hand"`
	PlayedHistory    []PlayedCard         `json:"playedHistory"`
	ShurikenDiscards []PlayedCard         `json:"shurikenDiscards"`
	Players          []PlayerView         `json:"players"`
	ShurikenPending  bool                 `json:"shurikenPending"`
}

// Snapshot builds the read model for forUser. Non-participants get an empty hand.
func (s *State) Snapshot(forUser uuid.UUID) Snapshot {
	snap := Snapshot{
		SessionID:        s.Session.ID,
		Status:           s.Session.Status,
		Level:            s.Session.Level,
		MaxLevel:         s.MaxLevel(),
		Lives:            s.Session.Lives,
		Shurikens:        s.Session.Shurikens,
		Version:          s.Session.Version,
		PlayerCount:      s.Session.PlayerCount,
		Difficulty:       s.Session.Difficulty,
		Hand:             []HandCard{},
		PlayedHistory:    []PlayedCard{},
		ShurikenDiscards: []PlayedCard{},
		Players:          make([]PlayerView, 0, len(s.Players)),
		ShurikenPending:  len(s.Requests) > 0,
	}

	for _, c := range s.Hand(forUser) {
		snap.Hand = append(snap.Hand, HandCard{ID: c.ID, Value: c.Value})
	}

	names := make(map[uuid.UUID]string, len(s.Players))
	for _, p := range s.Players {
		names[p.UserID] = p.Name
		_, requested := s.Requests[p.UserID]
		snap.Players = append(snap.Players, PlayerView{
			ID:                p.UserID,
			Name:              p.Name,
			Avatar:            p.Avatar,
			Seat:              p.Seat,
			HandCount:         len(s.Hand(p.UserID)),
			IsAdmin:           p.IsAdmin(),
			ShurikenRequested: requested,
		})
	}

	for _, c := range s.Cards {
		pc := PlayedCard{
			ID:         c.ID,
			Value:      c.Value,
			PlayerName: names[c.OwnerID],
			Timestamp:  c.ChangedAt,
			ErrorCard:  c.Error,
		}
		switch c.State {
		case models.CardPlayed:
			snap.PlayedHistory = append(snap.PlayedHistory, pc)
		case models.CardDiscarded:
			snap.ShurikenDiscards = append(snap.ShurikenDiscards, pc)
		}
	}
	byTime := func(cards []PlayedCard) {
		sort.SliceStable(cards, func(i, j int) bool {
			if cards[i].Timestamp.Equal(cards[j].Timestamp) {
				return cards[i].Value < cards[j].Value
			}
			return cards[i].Timestamp.Before(cards[j].Timestamp)
		})
	}
	byTime(snap.PlayedHistory)
	byTime(snap.ShurikenDiscards)
	return snap
}
