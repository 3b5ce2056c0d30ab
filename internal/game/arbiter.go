// internal/game/arbiter.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// PlayOutcome tells an accepted play apart from one that cost a life.
type PlayOutcome string

const (
	PlayAccepted             PlayOutcome = "accepted"
	PlayAcceptedWithLifeLoss PlayOutcome = "accepted_with_life_loss"
)

// PlayResult describes the consequences of one accepted play.
type PlayResult struct {
	Outcome PlayOutcome
	Card    models.Card

	// Lowest is the value that should have been played.
	Lowest int
	Status models.SessionStatus
}

// ErrorCard reports whether the played card cost a life.
func (r PlayResult) ErrorCard() bool {
	return r.Outcome == PlayAcceptedWithLifeLoss
}

// TryPlay plays cardID from playerID's hand.
//
// The card is legal when it is the lowest card still held by anyone at the
// table. Any other card is still played but marked as an error card and costs
// exactly one life. Losing the last life loses the game; emptying every hand
// completes the level, or wins the game on the final level.
//
// The caller must hold the session's exclusive lock so that the minimum is
// computed from the same state the mutation is applied to.
func TryPlay(s *State, playerID, cardID uuid.UUID, now time.Time) (PlayResult, error) {
	if s.Session.Status != models.StatusPlaying {
		return PlayResult{}, ErrSessionNotActive
	}
	if _, ok := s.Player(playerID); !ok {
		return PlayResult{}, ErrNotSeated
	}

	var card *models.Card
	for _, c := range s.Cards {
		if c.ID == cardID && c.OwnerID == playerID {
			card = c
			break
		}
	}
	if card == nil {
		return PlayResult{}, ErrCardNotFound
	}
	if !card.InHand() {
		return PlayResult{}, ErrCardNotInHand
	}

	lowest := s.lowestInHand()
	res := PlayResult{Outcome: PlayAccepted, Lowest: lowest.Value}

	card.State = models.CardPlayed
	card.ChangedAt = now
	payload := map[string]interface{}{"cardId": card.ID.String(), "value": card.Value}

	if card.Value != lowest.Value {
		res.Outcome = PlayAcceptedWithLifeLoss
		card.Error = true
		payload["lowest"] = lowest.Value
		s.record(models.HistoryErrorCard, playerID, payload, now)

		s.Session.Lives--
		s.record(models.HistoryLifeLost, playerID, map[string]interface{}{"lives": s.Session.Lives}, now)
		if s.Session.Lives <= 0 {
			s.Session.Lives = 0
			s.Session.Status = models.StatusLost
			s.clearRequests()
			s.record(models.HistoryLost, playerID, nil, now)
		}
	} else {
		s.record(models.HistoryCardPlayed, playerID, payload, now)
	}

	if s.Session.Status == models.StatusPlaying {
		s.finishLevelIfCleared(playerID, now)
	}

	res.Card = *card
	res.Status = s.Session.Status
	return res, nil
}
