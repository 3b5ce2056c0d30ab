// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/themind/internal/auth"
	"github.com/jason-s-yu/themind/internal/cache"
	"github.com/jason-s-yu/themind/internal/config"
	"github.com/jason-s-yu/themind/internal/database"
	"github.com/jason-s-yu/themind/internal/game"
	"github.com/jason-s-yu/themind/internal/gateway"
	"github.com/jason-s-yu/themind/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	if err := run(logger); err != nil {
		logger.WithError(err).Fatal("server exited")
	}
}

func run(logger *logrus.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	logger.SetLevel(level)

	ttl, err := cfg.TokenTTL()
	if err != nil {
		return err
	}
	if err := initAuth(cfg, ttl, logger); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var store gateway.Store
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres.DSN())
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		store = database.NewStore(pool)
		logger.WithField("host", cfg.Postgres.Host).Info("using postgres session store")
	default:
		store = game.NewGameStore()
		logger.Info("using in-memory session store")
	}

	var recorder gateway.Recorder
	if cfg.Redis.Addr != "" {
		rdb, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		recorder = cache.NewPublisher(rdb, cfg.Redis.Queue)
		logger.WithField("queue", cfg.Redis.Queue).Info("publishing session actions to redis")
	}

	machine := game.NewMachine(game.NewRandomDealer(time.Now().UnixNano()))
	gw := gateway.New(store, machine, recorder, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handlers.NewRouter(handlers.NewGameServer(gw, logger)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Running on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initAuth loads the verification key shared with the auth service. Without
// one the process signs its own keys, which only suits local development.
func initAuth(cfg config.Config, ttl time.Duration, logger *logrus.Logger) error {
	switch {
	case cfg.JWTPrivateKeyPath != "":
		return auth.InitFromPath(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, ttl)
	case cfg.JWTPublicKeyPath != "":
		return auth.InitVerifier(cfg.JWTPublicKeyPath, ttl)
	default:
		logger.Warn("JWT_PUBLIC_KEY_PATH not set; using ephemeral keys, externally issued tokens will be rejected")
		return auth.Init(ttl)
	}
}
