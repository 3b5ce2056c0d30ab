package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries(sessionID uuid.UUID) []models.HistoryEntry {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	actor := uuid.New()
	return []models.HistoryEntry{
		{SessionID: sessionID, Level: 2, Kind: models.HistoryErrorCard, ActorID: actor, Payload: map[string]interface{}{"value": 40}, CreatedAt: at},
		{SessionID: sessionID, Level: 2, Kind: models.HistoryLifeLost, ActorID: actor, Payload: map[string]interface{}{"lives": 1}, CreatedAt: at},
	}
}

func TestNewActionRecordsKeepsOrder(t *testing.T) {
	id := uuid.New()
	recs := NewActionRecords(7, sampleEntries(id))
	require.Len(t, recs, 2)
	for i, r := range recs {
		assert.Equal(t, id, r.SessionID)
		assert.Equal(t, int64(7), r.Version)
		assert.Equal(t, i, r.Seq)
		assert.Equal(t, 2, r.Level)
	}
	assert.Equal(t, string(models.HistoryErrorCard), recs[0].ActionType)
	assert.Equal(t, string(models.HistoryLifeLost), recs[1].ActionType)
	assert.Equal(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), recs[0].Timestamp)
}

func TestDecodeActionRecordRejectsGarbage(t *testing.T) {
	_, err := DecodeActionRecord("{not json")
	assert.Error(t, err)
}

func TestPublisherPushesToQueue(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer rdb.Close()

	queue := "themind_test_" + uuid.NewString()
	defer rdb.Del(ctx, queue)

	p := NewPublisher(rdb, queue)
	id := uuid.New()
	require.NoError(t, p.Record(ctx, 3, sampleEntries(id)))
	require.NoError(t, p.Record(ctx, 4, nil))

	raw, err := rdb.LRange(ctx, queue, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, raw, 2)

	rec, err := DecodeActionRecord(raw[1])
	require.NoError(t, err)
	assert.Equal(t, id, rec.SessionID)
	assert.Equal(t, int64(3), rec.Version)
	assert.Equal(t, 1, rec.Seq)
	assert.Equal(t, float64(1), rec.ActionPayload["lives"])
}
