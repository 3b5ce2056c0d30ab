package main

import (
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/themind/internal/cache"
	"github.com/jason-s-yu/themind/internal/config"
	"github.com/jason-s-yu/themind/internal/database"
	"github.com/jason-s-yu/themind/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestAppendToBatchBuffersUntilFull(t *testing.T) {
	var cfg config.Config
	cfg.Historian.BatchSize = 10
	cfg.Historian.FlushMs = 1000
	hs := NewHistorianService(cfg, nil, nil, quietLogger())

	for i := 0; i < 3; i++ {
		hs.appendToBatch(context.Background(), cache.ActionRecord{SessionID: uuid.New(), Seq: i})
	}
	assert.Len(t, hs.batch, 3)
	assert.Equal(t, time.Second, hs.flushDelay)
}

// TestHistorianEndToEnd pushes records through Redis and waits for them in PostgreSQL.
func TestHistorianEndToEnd(t *testing.T) {
	dsn, addr := os.Getenv("TEST_DATABASE_URL"), os.Getenv("REDIS_ADDR")
	if dsn == "" || addr == "" {
		t.Skip("TEST_DATABASE_URL and REDIS_ADDR are required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := database.Connect(ctx, dsn)
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, database.Migrate(ctx, pool))

	rdb, err := cache.ConnectRedis(ctx, addr, 0)
	require.NoError(t, err)
	defer rdb.Close()

	var cfg config.Config
	cfg.Redis.Queue = "themind_test_" + uuid.NewString()
	cfg.Historian.BatchSize = 2
	cfg.Historian.FlushMs = 50
	cfg.Historian.InactivityTimeout = 600
	defer rdb.Del(context.Background(), cfg.Redis.Queue)

	hs := NewHistorianService(cfg, rdb, pool, quietLogger())
	done := make(chan struct{})
	go func() { hs.Run(ctx); close(done) }()

	sessionID := uuid.New()
	entries := []models.HistoryEntry{
		{SessionID: sessionID, Level: 1, Kind: models.HistoryCardPlayed, ActorID: uuid.New(), CreatedAt: time.Now()},
		{SessionID: sessionID, Level: 1, Kind: models.HistoryLevelComplete, CreatedAt: time.Now()},
		{SessionID: sessionID, Level: 1, Kind: models.HistoryWon, CreatedAt: time.Now()},
	}
	require.NoError(t, cache.NewPublisher(rdb, cfg.Redis.Queue).Record(ctx, 9, entries))

	assert.Eventually(t, func() bool {
		var n int
		err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM session_actions WHERE session_id = $1`, sessionID).Scan(&n)
		return err == nil && n == 3
	}, 10*time.Second, 100*time.Millisecond)

	cancel()
	<-done
}
