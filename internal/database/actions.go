package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/themind/internal/cache"
)

// InsertActionRecords writes a batch of queued action records in one
// transaction. Records already stored are skipped, so a batch can be retried.
func InsertActionRecords(ctx context.Context, pool *pgxpool.Pool, records []cache.ActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO session_actions (
				session_id, version, seq, level, actor_user_id, action_type, action_payload, occurred_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (session_id, version, seq) DO NOTHING
		`
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("encode payload: %w", err)
			}
			actor := uuid.NullUUID{UUID: rec.ActorUserID, Valid: rec.ActorUserID != uuid.Nil}
			batch.Queue(q, rec.SessionID, rec.Version, rec.Seq, rec.Level, actor, rec.ActionType,
				payload, time.UnixMilli(rec.Timestamp))
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("insert action records: %w", err)
	}
	return nil
}

// CancelIdleSessions cancels every unfinished session whose last change is
// older than idleBefore and returns their ids. Each cancellation bumps the
// version and leaves a history entry without an actor.
func CancelIdleSessions(ctx context.Context, pool *pgxpool.Pool, idleBefore time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			UPDATE sessions
			SET status = 'cancelled', version = version + 1, updated_at = NOW()
			WHERE status IN ('waiting', 'playing', 'paused', 'level_complete')
			  AND updated_at < $1
			RETURNING id
		`, idleBefore)
		if err != nil {
			return err
		}
		ids, err = pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM shuriken_requests WHERE session_id = ANY($1)
		`, ids); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO session_history (session_id, level, kind, payload)
			SELECT id, level, 'cancelled', '{"reason":"inactive"}'::jsonb
			FROM sessions
			WHERE id = ANY($1)
		`, ids)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("cancel idle sessions: %w", err)
	}
	return ids, nil
}
