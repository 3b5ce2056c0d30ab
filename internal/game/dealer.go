// internal/game/dealer.go
package game

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

// Dealer produces the cards for a new level.
type Dealer interface {
	Deal(sessionID uuid.UUID, level int, players []models.Participant, now time.Time) ([]*models.Card, error)
}

// RandomDealer shuffles 1..DeckSize for every deal. It is safe for concurrent use.
type RandomDealer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDealer returns a dealer seeded with seed.
func NewRandomDealer(seed int64) *RandomDealer {
	return &RandomDealer{rng: rand.New(rand.NewSource(seed))}
}

// Deal draws level cards per player without replacement and hands them out round-robin.
func (d *RandomDealer) Deal(sessionID uuid.UUID, level int, players []models.Participant, now time.Time) ([]*models.Card, error) {
	need := HandSize(level) * len(players)
	if need > DeckSize {
		return nil, NewError(CodeDealExhausted, fmt.Sprintf("level %d needs %d cards, only %d exist", level, need, DeckSize))
	}

	d.mu.Lock()
	perm := d.rng.Perm(DeckSize)
	d.mu.Unlock()

	hands := make([][]int, len(players))
	for i := 0; i < need; i++ {
		seat := i % len(players)
		hands[seat] = append(hands[seat], perm[i]+1)
	}
	return BuildDeal(sessionID, level, players, hands, now)
}

// BuildDeal turns per-player card values into cards, checking hand sizes, the
// value range and that no value appears twice.
func BuildDeal(sessionID uuid.UUID, level int, players []models.Participant, hands [][]int, now time.Time) ([]*models.Card, error) {
	if len(hands) != len(players) {
		return nil, NewError(CodeDealExhausted, fmt.Sprintf("deal has %d hands for %d players", len(hands), len(players)))
	}
	seen := make(map[int]bool)
	var cards []*models.Card
	for i, p := range players {
		if len(hands[i]) != HandSize(level) {
			return nil, NewError(CodeDealExhausted, fmt.Sprintf("seat %d got %d cards, level %d needs %d", p.Seat, len(hands[i]), level, HandSize(level)))
		}
		for _, v := range hands[i] {
			if v < 1 || v > DeckSize {
				return nil, NewError(CodeDealExhausted, fmt.Sprintf("card value %d out of range", v))
			}
			if seen[v] {
				return nil, NewError(CodeDealExhausted, fmt.Sprintf("card value %d dealt twice", v))
			}
			seen[v] = true
			cards = append(cards, &models.Card{
				ID:        uuid.New(),
				SessionID: sessionID,
				Level:     level,
				Value:     v,
				OwnerID:   p.UserID,
				State:     models.CardInHand,
				ChangedAt: now,
			})
		}
	}
	return cards, nil
}
