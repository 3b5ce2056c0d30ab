// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for session action logs.
const DefaultQueueName = "themind_actions"

// ActionRecord holds the minimal info needed by the historian service.
// Seq orders the records produced by one committed action.
type ActionRecord struct {
	SessionID     uuid.UUID              `json:"session_id"`
	Version       int64                  `json:"version"`
	Seq           int                    `json:"seq"`
	Level         int                    `json:"level"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// NewActionRecords converts the history produced by one commit into queue records.
func NewActionRecords(version int64, entries []models.HistoryEntry) []ActionRecord {
	records := make([]ActionRecord, 0, len(entries))
	for i, e := range entries {
		records = append(records, ActionRecord{
			SessionID:     e.SessionID,
			Version:       version,
			Seq:           i,
			Level:         e.Level,
			ActorUserID:   e.ActorID,
			ActionType:    string(e.Kind),
			ActionPayload: e.Payload,
			Timestamp:     e.CreatedAt.UnixMilli(),
		})
	}
	return records
}

// ConnectRedis creates a client for addr/db and checks it with a ping.
func ConnectRedis(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// Publisher pushes committed session history onto a Redis list for the historian.
type Publisher struct {
	rdb   *redis.Client
	queue string
}

// NewPublisher returns a publisher writing to queue, or DefaultQueueName if empty.
func NewPublisher(rdb *redis.Client, queue string) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{rdb: rdb, queue: queue}
}

// Record serializes each entry and pushes them to the queue in one RPUSH.
// This does not block the calling logic (other than a quick network send).
func (p *Publisher) Record(ctx context.Context, version int64, entries []models.HistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	values := make([]interface{}, 0, len(entries))
	for _, rec := range NewActionRecords(version, entries) {
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to marshal ActionRecord: %w", err)
		}
		values = append(values, data)
	}
	if err := p.rdb.RPush(ctx, p.queue, values...).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", p.queue, err)
	}
	return nil
}

// DecodeActionRecord parses one queue payload.
func DecodeActionRecord(payload string) (ActionRecord, error) {
	var rec ActionRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return ActionRecord{}, fmt.Errorf("invalid action record: %w", err)
	}
	return rec, nil
}
