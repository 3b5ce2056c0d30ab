// Package gateway is the single entry point for every action against a session.
// It serializes actions per session through the store, applies them with the
// game machine and hands committed history to a recorder.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/game"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/sirupsen/logrus"
)

// Store gives exclusive, transactional access to one session at a time.
type Store interface {
	Create(ctx context.Context, s *game.State) error
	Get(ctx context.Context, id uuid.UUID) (*game.State, error)
	// Update runs fn while holding the session's lock and commits what fn left
	// in the state, or nothing if fn returns an error.
	Update(ctx context.Context, id uuid.UUID, fn func(*game.State) error) error
}

// Recorder receives the history produced by each commit.
type Recorder interface {
	Record(ctx context.Context, version int64, entries []models.HistoryEntry) error
}

const recordTimeout = 2 * time.Second

// Gateway applies actions on behalf of authenticated players.
type Gateway struct {
	store    Store
	machine  *game.Machine
	recorder Recorder
	logger   *logrus.Logger
}

// New returns a gateway. recorder may be nil.
func New(store Store, machine *game.Machine, recorder Recorder, logger *logrus.Logger) *Gateway {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gateway{store: store, machine: machine, recorder: recorder, logger: logger}
}

// Create opens a new waiting session with owner in the admin seat.
func (g *Gateway) Create(ctx context.Context, owner models.User, opts game.Options) (game.Snapshot, error) {
	if err := opts.Validate(); err != nil {
		return game.Snapshot{}, err
	}
	st := game.NewState(uuid.New(), owner, opts, g.machine.Now())
	journal := append([]models.HistoryEntry(nil), st.Journal...)
	if err := g.store.Create(ctx, st); err != nil {
		return game.Snapshot{}, g.fault(err, st.Session.ID, owner.ID, "create")
	}
	g.logger.WithFields(logrus.Fields{
		"session":     st.Session.ID,
		"owner":       owner.ID,
		"playerCount": opts.PlayerCount,
		"difficulty":  opts.Difficulty,
	}).Info("session created")
	g.record(st.Session.Version, journal)
	return st.Snapshot(owner.ID), nil
}

// Apply runs action for playerID against the session. Either the whole action
// commits or nothing does; the snapshot reflects the committed state.
func (g *Gateway) Apply(ctx context.Context, sessionID, playerID uuid.UUID, action game.Action) (game.Result, game.Snapshot, error) {
	var (
		res     game.Result
		snap    game.Snapshot
		journal []models.HistoryEntry
	)
	err := g.store.Update(ctx, sessionID, func(s *game.State) error {
		r, err := g.machine.Apply(s, playerID, action)
		if err != nil {
			return err
		}
		res = r
		snap = s.Snapshot(playerID)
		journal = append(journal[:0], s.Journal...)
		return nil
	})

	log := g.logger.WithFields(logrus.Fields{
		"session": sessionID,
		"actor":   playerID,
		"action":  action.Name(),
	})
	if err != nil {
		if game.IsRejection(err) {
			log.WithField("code", game.CodeOf(err)).Debugf("action rejected: %v", err)
			return game.Result{}, game.Snapshot{}, err
		}
		return game.Result{}, game.Snapshot{}, g.fault(err, sessionID, playerID, action.Name())
	}

	log.WithFields(logrus.Fields{
		"status":  res.Status,
		"version": snap.Version,
	}).Debug("action applied")
	g.record(snap.Version, journal)
	return res, snap, nil
}

// Snapshot returns the session as seen by viewer.
func (g *Gateway) Snapshot(ctx context.Context, sessionID, viewer uuid.UUID) (game.Snapshot, error) {
	s, err := g.store.Get(ctx, sessionID)
	if err != nil {
		if game.IsRejection(err) {
			return game.Snapshot{}, err
		}
		return game.Snapshot{}, g.fault(err, sessionID, viewer, "snapshot")
	}
	return s.Snapshot(viewer), nil
}

// fault logs a storage-level failure and hides its detail from callers.
func (g *Gateway) fault(err error, sessionID, actor uuid.UUID, op string) error {
	g.logger.WithFields(logrus.Fields{
		"session": sessionID,
		"actor":   actor,
		"op":      op,
	}).WithError(err).Error("session storage failure")

	var ge *game.Error
	if errors.As(err, &ge) && ge.Code == game.CodeStorage {
		return err
	}
	return game.WrapError(game.CodeStorage, "internal error, please retry", fmt.Errorf("%s: %w", op, err))
}

// record publishes history in the background; failures only get logged.
func (g *Gateway) record(version int64, entries []models.HistoryEntry) {
	if g.recorder == nil || len(entries) == 0 {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := g.recorder.Record(ctx, version, entries); err != nil {
			g.logger.WithField("session", entries[0].SessionID).WithError(err).Warn("failed to record session history")
		}
	}()
}
