// internal/game/shuriken.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// ShurikenResult reports what a shuriken request led to.
type ShurikenResult struct {
	// Pending is true while some seated player has not asked yet.
	Pending bool

	// Waiting lists the players whose request is still missing.
	Waiting []uuid.UUID

	// Discarded holds one card per player that had any, when the shuriken fired.
	Discarded []models.Card
	Status    models.SessionStatus
}

// Executed reports whether the shuriken fired.
func (r ShurikenResult) Executed() bool {
	return !r.Pending
}

// RequestShuriken records playerID's agreement to throw a shuriken this level.
//
// Once every seated player has an outstanding request the shuriken fires in the
// same step: each player discards their lowest card, one shuriken is spent and
// all requests are cleared. Players with an empty hand must still agree but
// discard nothing. No life is ever lost here.
func RequestShuriken(s *State, playerID uuid.UUID, now time.Time) (ShurikenResult, error) {
	if s.Session.Status != models.StatusPlaying {
		return ShurikenResult{}, ErrSessionNotActive
	}
	if _, ok := s.Player(playerID); !ok {
		return ShurikenResult{}, ErrNotSeated
	}
	if s.Session.Shurikens <= 0 {
		return ShurikenResult{}, NewError(CodeNoShurikens, "no shurikens left")
	}
	if _, ok := s.Requests[playerID]; ok {
		return ShurikenResult{}, NewError(CodeShurikenRequested, "you already asked for a shuriken")
	}

	if s.Requests == nil {
		s.Requests = make(map[uuid.UUID]time.Time)
	}
	s.Requests[playerID] = now
	s.record(models.HistoryShurikenRequested, playerID, nil, now)

	return tryExecuteShuriken(s, playerID, now), nil
}

// waitingForShuriken lists seated players without an outstanding request.
func waitingForShuriken(s *State) []uuid.UUID {
	var waiting []uuid.UUID
	for _, p := range s.Players {
		if _, ok := s.Requests[p.UserID]; !ok {
			waiting = append(waiting, p.UserID)
		}
	}
	return waiting
}

// tryExecuteShuriken fires the shuriken when every seated player agrees.
func tryExecuteShuriken(s *State, actor uuid.UUID, now time.Time) ShurikenResult {
	if waiting := waitingForShuriken(s); len(waiting) > 0 {
		return ShurikenResult{Pending: true, Waiting: waiting, Status: s.Session.Status}
	}

	res := ShurikenResult{}
	var values []int
	for _, p := range s.Players {
		low := s.lowestOf(p.UserID)
		if low == nil {
			continue
		}
		low.State = models.CardDiscarded
		low.ChangedAt = now
		res.Discarded = append(res.Discarded, *low)
		values = append(values, low.Value)
	}

	s.Session.Shurikens--
	s.clearRequests()
	s.record(models.HistoryShurikenUsed, actor, map[string]interface{}{
		"discarded": values,
		"shurikens": s.Session.Shurikens,
	}, now)

	s.finishLevelIfCleared(actor, now)
	res.Status = s.Session.Status
	return res
}
