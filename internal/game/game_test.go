// internal/game/game_test.go
package game

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedDealer deals the hands registered for a level and falls back to
// consecutive values (seat 1 gets 1..L, seat 2 gets L+1..2L, ...).
type fixedDealer struct {
	mu    sync.Mutex
	hands map[int][][]int
	calls int
}

func newFixedDealer() *fixedDealer {
	return &fixedDealer{hands: make(map[int][][]int)}
}

func (d *fixedDealer) set(level int, hands ...[]int) *fixedDealer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.hands[level] = hands
	return d
}

func (d *fixedDealer) Deal(sessionID uuid.UUID, level int, players []models.Participant, now time.Time) ([]*models.Card, error) {
	d.mu.Lock()
	d.calls++
	hands, ok := d.hands[level]
	d.mu.Unlock()
	if !ok {
		hands = make([][]int, len(players))
		v := 1
		for i := range players {
			for j := 0; j < HandSize(level); j++ {
				hands[i] = append(hands[i], v)
				v++
			}
		}
	}
	return BuildDeal(sessionID, level, players, hands, now)
}

// testClock hands out strictly increasing timestamps.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func testUsers(n int) []models.User {
	users := make([]models.User, n)
	for i := range users {
		users[i] = models.User{ID: uuid.New(), Username: fmt.Sprintf("player%d", i+1)}
	}
	return users
}

// setupWaitingGame creates a session owned by users[0] with every other user seated.
func setupWaitingGame(t *testing.T, numPlayers int, d Dealer) (*Machine, *State, []models.User) {
	t.Helper()
	m := NewMachine(d)
	m.Now = newTestClock().Now

	users := testUsers(numPlayers)
	opts := Options{PlayerCount: numPlayers, Difficulty: models.DifficultyMedium}
	require.NoError(t, opts.Validate())

	s := NewState(uuid.New(), users[0], opts, m.Now())
	for _, u := range users[1:] {
		_, err := m.Apply(s, u.ID, JoinSession{DisplayName: u.Username})
		require.NoError(t, err)
	}
	require.Len(t, s.Players, numPlayers)
	return m, s, users
}

// setupTestGame returns a started session at level 1.
func setupTestGame(t *testing.T, numPlayers int, d Dealer) (*Machine, *State, []models.User) {
	t.Helper()
	m, s, users := setupWaitingGame(t, numPlayers, d)
	_, err := m.Apply(s, users[0].ID, StartGame{})
	require.NoError(t, err)
	require.Equal(t, models.StatusPlaying, s.Session.Status)
	return m, s, users
}

// cardByValue finds the current-deal card with value v.
func cardByValue(t *testing.T, s *State, v int) *models.Card {
	t.Helper()
	for _, c := range s.Cards {
		if c.Value == v {
			return c
		}
	}
	require.FailNow(t, "card not dealt", "value %d", v)
	return nil
}

// playOut plays every remaining card lowest first until the level ends.
func playOut(t *testing.T, m *Machine, s *State) {
	t.Helper()
	for s.Session.Status == models.StatusPlaying {
		low := s.lowestInHand()
		require.NotNil(t, low)
		res, err := m.Apply(s, low.OwnerID, PlayCard{CardID: low.ID})
		require.NoError(t, err)
		require.False(t, res.Play.ErrorCard())
	}
}

// assertInvariants checks the resource caps and value uniqueness of the deal.
func assertInvariants(t *testing.T, s *State) {
	t.Helper()
	assert.GreaterOrEqual(t, s.Session.Lives, 0)
	assert.LessOrEqual(t, s.Session.Lives, LivesMax(s.Session.Level, s.Session.Difficulty, s.Session.PlayerCount))
	assert.GreaterOrEqual(t, s.Session.Shurikens, 0)
	assert.LessOrEqual(t, s.Session.Shurikens, ShurikensMax)

	seen := make(map[int]bool)
	for _, c := range s.Cards {
		if c.State == models.CardDiscarded {
			continue
		}
		assert.False(t, seen[c.Value], "value %d appears twice", c.Value)
		seen[c.Value] = true
	}
}

func TestNewStateSeatsOwnerAsAdmin(t *testing.T) {
	owner := models.User{ID: uuid.New(), Username: "host", Avatar: "fox.png"}
	s := NewState(uuid.New(), owner, Options{PlayerCount: 3, Difficulty: models.DifficultyEasy}, time.Now())

	assert.Equal(t, models.StatusWaiting, s.Session.Status)
	assert.Equal(t, 1, s.Session.Level)
	assert.Equal(t, 4, s.Session.Lives)
	assert.Equal(t, StartingShurikens, s.Session.Shurikens)
	assert.Equal(t, int64(1), s.Session.Version)

	p, ok := s.Player(owner.ID)
	require.True(t, ok)
	assert.True(t, p.IsAdmin())
	assert.Equal(t, "fox.png", p.Avatar)

	require.Len(t, s.Journal, 1)
	assert.Equal(t, models.HistorySessionCreated, s.Journal[0].Kind)
}

func TestCloneIsDeep(t *testing.T) {
	_, s, users := setupTestGame(t, 2, newFixedDealer())
	s.Requests[users[0].ID] = time.Now()

	c := s.Clone()
	c.Cards[0].State = models.CardPlayed
	c.Players[0].Name = "changed"
	delete(c.Requests, users[0].ID)
	c.Session.Lives = 0

	assert.Equal(t, models.CardInHand, s.Cards[0].State)
	assert.Equal(t, users[0].Username, s.Players[0].Name)
	assert.Contains(t, s.Requests, users[0].ID)
	assert.NotZero(t, s.Session.Lives)
}

func TestHandIsSortedAndPrivate(t *testing.T) {
	d := newFixedDealer().set(1, []int{40}, []int{7})
	_, s, users := setupTestGame(t, 2, d)

	hand := s.Hand(users[0].ID)
	require.Len(t, hand, 1)
	assert.Equal(t, 40, hand[0].Value)
	assert.Empty(t, s.Hand(uuid.New()))
}
