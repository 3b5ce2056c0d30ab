// internal/game/game.go
package game

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// State holds everything the rules need to decide one action against one session:
// the session row, its seated players, the current deal and the outstanding
// shuriken requests. Stores hand out a State only while they hold the session's
// exclusive lock.
type State struct {
	Session models.Session
	Players []models.Participant // ordered by seat
	Cards   []*models.Card       // current deal only

	// Requests maps a user to the time they asked for a shuriken this level.
	Requests map[uuid.UUID]time.Time

	// Journal collects history appended since the state was loaded. Stores
	// persist it on commit and start every load with an empty journal.
	Journal []models.HistoryEntry
}

// NewState builds a waiting session with the owner in the admin seat.
func NewState(id uuid.UUID, owner models.User, opts Options, now time.Time) *State {
	s := &State{
		Session: models.Session{
			ID:          id,
			Status:      models.StatusWaiting,
			Level:       1,
			Lives:       StartingLives(opts.Difficulty, opts.PlayerCount),
			Shurikens:   StartingShurikens,
			PlayerCount: opts.PlayerCount,
			Difficulty:  opts.Difficulty,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		Requests: make(map[uuid.UUID]time.Time),
	}
	s.Players = append(s.Players, models.Participant{
		SessionID: id,
		UserID:    owner.ID,
		Seat:      models.AdminSeat,
		Name:      owner.Username,
		Avatar:    owner.Avatar,
		JoinedAt:  now,
	})
	s.record(models.HistorySessionCreated, owner.ID, map[string]interface{}{
		"playerCount": opts.PlayerCount,
		"difficulty":  string(opts.Difficulty),
	}, now)
	return s
}

// Clone returns a deep copy that can be mutated without affecting s.
func (s *State) Clone() *State {
	c := &State{
		Session:  s.Session,
		Players:  make([]models.Participant, len(s.Players)),
		Cards:    make([]*models.Card, len(s.Cards)),
		Requests: make(map[uuid.UUID]time.Time, len(s.Requests)),
		Journal:  make([]models.HistoryEntry, len(s.Journal)),
	}
	if s.Session.StartedAt != nil {
		started := *s.Session.StartedAt
		c.Session.StartedAt = &started
	}
	copy(c.Players, s.Players)
	for i, card := range s.Cards {
		cp := *card
		c.Cards[i] = &cp
	}
	for k, v := range s.Requests {
		c.Requests[k] = v
	}
	copy(c.Journal, s.Journal)
	return c
}

// Player returns the seated participant for userID.
func (s *State) Player(userID uuid.UUID) (models.Participant, bool) {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return models.Participant{}, false
}

// MaxLevel is the final level for this session's table size.
func (s *State) MaxLevel() int {
	return MaxLevel(s.Session.PlayerCount)
}

// Hand returns the cards userID currently holds, lowest first.
func (s *State) Hand(userID uuid.UUID) []*models.Card {
	var hand []*models.Card
	for _, c := range s.Cards {
		if c.InHand() && c.OwnerID == userID {
			hand = append(hand, c)
		}
	}
	sort.Slice(hand, func(i, j int) bool { return hand[i].Value < hand[j].Value })
	return hand
}

// lowestInHand is the lowest card still held by anyone, or nil once every hand is empty.
func (s *State) lowestInHand() *models.Card {
	var low *models.Card
	for _, c := range s.Cards {
		if c.InHand() && (low == nil || c.Value < low.Value) {
			low = c
		}
	}
	return low
}

// lowestOf is the lowest card held by userID, or nil for an empty hand.
func (s *State) lowestOf(userID uuid.UUID) *models.Card {
	var low *models.Card
	for _, c := range s.Cards {
		if c.InHand() && c.OwnerID == userID && (low == nil || c.Value < low.Value) {
			low = c
		}
	}
	return low
}

func (s *State) cardsInHand() int {
	n := 0
	for _, c := range s.Cards {
		if c.InHand() {
			n++
		}
	}
	return n
}

func (s *State) clearRequests() {
	s.Requests = make(map[uuid.UUID]time.Time)
}

// record appends a history entry for the current level.
func (s *State) record(kind models.HistoryKind, actor uuid.UUID, payload map[string]interface{}, now time.Time) {
	s.Journal = append(s.Journal, models.HistoryEntry{
		SessionID: s.Session.ID,
		Level:     s.Session.Level,
		Kind:      kind,
		ActorID:   actor,
		Payload:   payload,
		CreatedAt: now,
	})
}

// finishLevelIfCleared moves the session on once no card is left in any hand.
// Clearing the final level wins the game.
func (s *State) finishLevelIfCleared(actor uuid.UUID, now time.Time) bool {
	if s.cardsInHand() > 0 {
		return false
	}
	s.clearRequests()
	if s.Session.Level >= s.MaxLevel() {
		s.Session.Status = models.StatusWon
		s.record(models.HistoryWon, actor, nil, now)
		return true
	}
	s.Session.Status = models.StatusLevelComplete
	s.record(models.HistoryLevelComplete, actor, nil, now)
	return true
}
