// cmd/db/historian.go is an asynchronous historian service that pops session
// action records from a Redis queue and persists them to PostgreSQL. It also
// cancels sessions that have been idle for too long.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/themind/internal/cache"
	"github.com/jason-s-yu/themind/internal/config"
	"github.com/jason-s-yu/themind/internal/database"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// HistorianService encapsulates the Redis + DB logic for capturing session actions.
type HistorianService struct {
	redisClient *redis.Client
	pool        *pgxpool.Pool
	logger      *logrus.Logger
	queue       string
	batchSize   int
	flushDelay  time.Duration
	inactivity  time.Duration

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

// NewHistorianService builds a service from cfg around open connections.
func NewHistorianService(cfg config.Config, rdb *redis.Client, pool *pgxpool.Pool, logger *logrus.Logger) *HistorianService {
	return &HistorianService{
		redisClient: rdb,
		pool:        pool,
		logger:      logger,
		queue:       cfg.Redis.Queue,
		batchSize:   cfg.Historian.BatchSize,
		flushDelay:  cfg.Historian.FlushInterval(),
		inactivity:  cfg.Historian.Inactivity(),
		batch:       make([]cache.ActionRecord, 0, cfg.Historian.BatchSize),
	}
}

// Run starts the queue reader, the periodic flush and the idle sweep, and
// blocks until ctx is done. Pending records are flushed before returning.
func (hs *HistorianService) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); hs.readRedisLoop(ctx) }()
	go func() { defer wg.Done(); hs.flushLoop(ctx) }()
	go func() { defer wg.Done(); hs.inactivityLoop(ctx) }()

	hs.logger.WithField("queue", hs.queue).Info("themind-historian service started")
	<-ctx.Done()
	wg.Wait()
	hs.flushBatchToDB(context.Background())
	hs.logger.Info("themind-historian shutting down")
}

// readRedisLoop continuously uses BLPop to retrieve messages from the Redis queue.
func (hs *HistorianService) readRedisLoop(ctx context.Context) {
	for ctx.Err() == nil {
		// BLPop with a timeout so that context cancellation is noticed.
		res, err := hs.redisClient.BLPop(ctx, 3*time.Second, hs.queue).Result()
		if err != nil {
			if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
				hs.logger.WithError(err).Error("BLPop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if len(res) < 2 {
			continue
		}

		// res[0] is the queue name and res[1] the payload.
		record, err := cache.DecodeActionRecord(res[1])
		if err != nil {
			hs.logger.WithError(err).Warn("dropping queue entry")
			continue
		}
		hs.appendToBatch(ctx, record)
	}
}

// appendToBatch adds a record and flushes once the batch is full.
func (hs *HistorianService) appendToBatch(ctx context.Context, record cache.ActionRecord) {
	hs.batchMu.Lock()
	hs.batch = append(hs.batch, record)
	full := len(hs.batch) >= hs.batchSize
	hs.batchMu.Unlock()

	if full {
		hs.flushBatchToDB(ctx)
	}
}

func (hs *HistorianService) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.flushDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.flushBatchToDB(ctx)
		}
	}
}

// flushBatchToDB writes the current batch in a single transaction. A failed
// batch is put back so the next flush retries it.
func (hs *HistorianService) flushBatchToDB(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	batchCopy := make([]cache.ActionRecord, len(hs.batch))
	copy(batchCopy, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	if err := database.InsertActionRecords(ctx, hs.pool, batchCopy); err != nil {
		hs.logger.WithError(err).WithField("records", len(batchCopy)).Error("flushBatchToDB failed")
		hs.batchMu.Lock()
		hs.batch = append(batchCopy, hs.batch...)
		hs.batchMu.Unlock()
		return
	}
	hs.logger.Debugf("Flushed %d actions to DB.", len(batchCopy))
}

// inactivityLoop periodically cancels sessions idle beyond the configured threshold.
func (hs *HistorianService) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := database.CancelIdleSessions(ctx, hs.pool, time.Now().Add(-hs.inactivity))
			if err != nil {
				hs.logger.WithError(err).Error("idle session sweep failed")
				continue
			}
			for _, id := range ids {
				hs.logger.WithField("session", id).Info("cancelled session due to inactivity")
			}
		}
	}
}

func main() {
	logger := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("invalid configuration")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Postgres.DSN())
	if err != nil {
		logger.WithError(err).Fatal("database unavailable")
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.WithError(err).Fatal("migrations failed")
	}

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB)
	if err != nil {
		logger.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	NewHistorianService(cfg, rdb, pool, logger).Run(ctx)
	logger.Info("Historian shutdown complete.")
}
