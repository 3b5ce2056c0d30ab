package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/themind/internal/game"
	"github.com/jason-s-yu/themind/internal/models"
)

// Store keeps sessions in PostgreSQL. Update locks the session row with
// SELECT ... FOR UPDATE, so every server sharing the database serializes
// actions on the same session.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Create inserts a new session with its players and journal.
func (s *Store) Create(ctx context.Context, st *game.State) error {
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO sessions (id, status, level, lives, shurikens, player_count, difficulty,
			                      rewarded_through, version, created_at, started_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		ss := st.Session
		if _, err := tx.Exec(ctx, q,
			ss.ID, string(ss.Status), ss.Level, ss.Lives, ss.Shurikens, ss.PlayerCount, string(ss.Difficulty),
			ss.RewardedThrough, ss.Version, ss.CreatedAt, ss.StartedAt, ss.UpdatedAt,
		); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return saveChildren(ctx, tx, st)
	})
	if err != nil {
		return fmt.Errorf("create session %s: %w", st.Session.ID, err)
	}
	return nil
}

// Get loads the session without taking a lock.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*game.State, error) {
	var st *game.State
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		var err error
		st, err = load(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Update loads the session under a row lock, runs fn and writes back the
// result in the same transaction. An error from fn rolls everything back.
func (s *Store) Update(ctx context.Context, id uuid.UUID, fn func(*game.State) error) error {
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		st, err := load(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if err := fn(st); err != nil {
			return err
		}
		return save(ctx, tx, st)
	})
}

// History returns the stored history of a session, oldest first.
func (s *Store) History(ctx context.Context, id uuid.UUID) ([]models.HistoryEntry, error) {
	q := `
		SELECT session_id, level, kind, actor_id, payload, created_at
		FROM session_history
		WHERE session_id = $1
		ORDER BY id
	`
	rows, err := s.pool.Query(ctx, q, id)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []models.HistoryEntry
	for rows.Next() {
		var (
			e       models.HistoryEntry
			kind    string
			actor   uuid.NullUUID
			payload []byte
		)
		if err := rows.Scan(&e.SessionID, &e.Level, &kind, &actor, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Kind = models.HistoryKind(kind)
		e.ActorID = actor.UUID
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e.Payload); err != nil {
				return nil, fmt.Errorf("decode history payload: %w", err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func load(ctx context.Context, tx pgx.Tx, id uuid.UUID, forUpdate bool) (*game.State, error) {
	q := `
		SELECT id, status, level, lives, shurikens, player_count, difficulty,
		       rewarded_through, version, created_at, started_at, updated_at
		FROM sessions
		WHERE id = $1
	`
	if forUpdate {
		q += " FOR UPDATE"
	}

	st := &game.State{Requests: make(map[uuid.UUID]time.Time)}
	var status, difficulty string
	ss := &st.Session
	err := tx.QueryRow(ctx, q, id).Scan(
		&ss.ID, &status, &ss.Level, &ss.Lives, &ss.Shurikens, &ss.PlayerCount, &difficulty,
		&ss.RewardedThrough, &ss.Version, &ss.CreatedAt, &ss.StartedAt, &ss.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	ss.Status = models.SessionStatus(status)
	ss.Difficulty = models.Difficulty(difficulty)

	if err := loadPlayers(ctx, tx, st); err != nil {
		return nil, err
	}
	if err := loadCards(ctx, tx, st); err != nil {
		return nil, err
	}
	if err := loadRequests(ctx, tx, st); err != nil {
		return nil, err
	}
	return st, nil
}

func loadPlayers(ctx context.Context, tx pgx.Tx, st *game.State) error {
	rows, err := tx.Query(ctx, `
		SELECT session_id, user_id, seat, name, avatar, joined_at
		FROM session_players
		WHERE session_id = $1
		ORDER BY seat
	`, st.Session.ID)
	if err != nil {
		return fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.SessionID, &p.UserID, &p.Seat, &p.Name, &p.Avatar, &p.JoinedAt); err != nil {
			return fmt.Errorf("scan player: %w", err)
		}
		st.Players = append(st.Players, p)
	}
	return rows.Err()
}

// loadCards reads the current deal only.
func loadCards(ctx context.Context, tx pgx.Tx, st *game.State) error {
	rows, err := tx.Query(ctx, `
		SELECT id, session_id, level, value, owner_id, state, is_error, changed_at
		FROM cards
		WHERE session_id = $1 AND level = $2
		ORDER BY value
	`, st.Session.ID, st.Session.Level)
	if err != nil {
		return fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c     models.Card
			owner uuid.NullUUID
			state string
		)
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Level, &c.Value, &owner, &state, &c.Error, &c.ChangedAt); err != nil {
			return fmt.Errorf("scan card: %w", err)
		}
		c.OwnerID = owner.UUID
		c.State = models.CardState(state)
		st.Cards = append(st.Cards, &c)
	}
	return rows.Err()
}

func loadRequests(ctx context.Context, tx pgx.Tx, st *game.State) error {
	rows, err := tx.Query(ctx, `
		SELECT user_id, requested_at FROM shuriken_requests WHERE session_id = $1
	`, st.Session.ID)
	if err != nil {
		return fmt.Errorf("query shuriken requests: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			user uuid.UUID
			at   time.Time
		)
		if err := rows.Scan(&user, &at); err != nil {
			return fmt.Errorf("scan shuriken request: %w", err)
		}
		st.Requests[user] = at
	}
	return rows.Err()
}

func save(ctx context.Context, tx pgx.Tx, st *game.State) error {
	ss := st.Session
	q := `
		UPDATE sessions
		SET status = $2, level = $3, lives = $4, shurikens = $5, rewarded_through = $6,
		    version = $7, started_at = $8, updated_at = $9
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, q,
		ss.ID, string(ss.Status), ss.Level, ss.Lives, ss.Shurikens, ss.RewardedThrough,
		ss.Version, ss.StartedAt, ss.UpdatedAt,
	); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return saveChildren(ctx, tx, st)
}

// saveChildren writes players, the current deal, requests and new history.
func saveChildren(ctx context.Context, tx pgx.Tx, st *game.State) error {
	id := st.Session.ID
	for _, p := range st.Players {
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_players (session_id, user_id, seat, name, avatar, joined_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (session_id, user_id) DO NOTHING
		`, id, p.UserID, p.Seat, p.Name, p.Avatar, p.JoinedAt); err != nil {
			return fmt.Errorf("insert player: %w", err)
		}
	}

	// Earlier levels stay for the audit trail; a redeal of the same level
	// replaces the cards that are not part of the current set.
	keep := make([]uuid.UUID, 0, len(st.Cards))
	for _, c := range st.Cards {
		keep = append(keep, c.ID)
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM cards WHERE session_id = $1 AND level = $2 AND NOT (id = ANY($3))
	`, id, st.Session.Level, keep); err != nil {
		return fmt.Errorf("delete stale cards: %w", err)
	}
	for _, c := range st.Cards {
		owner := uuid.NullUUID{UUID: c.OwnerID, Valid: c.OwnerID != uuid.Nil}
		if _, err := tx.Exec(ctx, `
			INSERT INTO cards (id, session_id, level, value, owner_id, state, is_error, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET state = EXCLUDED.state, is_error = EXCLUDED.is_error, changed_at = EXCLUDED.changed_at
		`, c.ID, id, c.Level, c.Value, owner, string(c.State), c.Error, c.ChangedAt); err != nil {
			return fmt.Errorf("upsert card %d: %w", c.Value, err)
		}
	}

	if _, err := tx.Exec(ctx, `DELETE FROM shuriken_requests WHERE session_id = $1`, id); err != nil {
		return fmt.Errorf("clear shuriken requests: %w", err)
	}
	for user, at := range st.Requests {
		if _, err := tx.Exec(ctx, `
			INSERT INTO shuriken_requests (session_id, user_id, requested_at) VALUES ($1, $2, $3)
		`, id, user, at); err != nil {
			return fmt.Errorf("insert shuriken request: %w", err)
		}
	}

	for _, e := range st.Journal {
		payload, err := json.Marshal(e.Payload)
		if err != nil {
			return fmt.Errorf("encode history payload: %w", err)
		}
		actor := uuid.NullUUID{UUID: e.ActorID, Valid: e.ActorID != uuid.Nil}
		if _, err := tx.Exec(ctx, `
			INSERT INTO session_history (session_id, level, kind, actor_id, payload, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, e.SessionID, e.Level, string(e.Kind), actor, payload, e.CreatedAt); err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return nil
}
