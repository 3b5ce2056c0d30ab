package game

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
)

type storedSession struct {
	mu      sync.Mutex
	state   *State
	history []models.HistoryEntry
}

// GameStore keeps sessions in memory. Each session has its own lock, so actions
// on different sessions never wait on each other.
type GameStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*storedSession
}

func NewGameStore() *GameStore {
	return &GameStore{
		sessions: make(map[uuid.UUID]*storedSession),
	}
}

func (s *GameStore) entry(id uuid.UUID) (*storedSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	return e, ok
}

// Create stores a new session together with its journal.
func (s *GameStore) Create(ctx context.Context, st *State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := &storedSession{state: st.Clone()}
	e.history = append(e.history, e.state.Journal...)
	e.state.Journal = nil

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[st.Session.ID]; exists {
		return NewError(CodeInvalidAction, "session already exists")
	}
	s.sessions[st.Session.ID] = e
	return nil
}

// Get returns a copy of the session's current state.
func (s *GameStore) Get(ctx context.Context, id uuid.UUID) (*State, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.entry(id)
	if !ok {
		return nil, ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Clone(), nil
}

// Update runs fn on a private copy of the session while holding its lock. The
// copy replaces the stored state only when fn succeeds.
func (s *GameStore) Update(ctx context.Context, id uuid.UUID, fn func(*State) error) error {
	e, ok := s.entry(id)
	if !ok {
		return ErrSessionNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	work := e.state.Clone()
	work.Journal = nil
	if err := fn(work); err != nil {
		return err
	}
	e.history = append(e.history, work.Journal...)
	work.Journal = nil
	e.state = work
	return nil
}

// History returns every entry recorded for the session, oldest first.
func (s *GameStore) History(id uuid.UUID) []models.HistoryEntry {
	e, ok := s.entry(id)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.HistoryEntry, len(e.history))
	copy(out, e.history)
	return out
}
