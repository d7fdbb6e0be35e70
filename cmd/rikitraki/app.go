package main

import (
	"context"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/config"
	"github.com/rikitraki/trackapi/internal/db"
	dbRedis "github.com/rikitraki/trackapi/internal/db/redis"
	logpkg "github.com/rikitraki/trackapi/internal/logger"
	trackrepo "github.com/rikitraki/trackapi/internal/repository/track"
	"github.com/rikitraki/trackapi/internal/version"
)

// app holds what every command needs: configuration, a logger and a
// ready store.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  db.Store
}

func bootstrap(ctx context.Context) (*app, error) {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env,
		logpkg.WithLevel(cfg.Logging.Level),
		logpkg.WithFile(logpkg.FileConfig{
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
			Compress:   cfg.Logging.File.Compress,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting rikitraki",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	var store db.Store
	switch cfg.Database.Driver {
	case "redis", "valkey":
		// valkey-search serves the same FT commands, so one client covers both.
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
	default:
		err = fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
	if err != nil {
		_ = logger.Sync()
		return nil, fmt.Errorf("create database store: %w", err)
	}

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		_ = logger.Sync()
		return nil, fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	return &app{env: env, cfg: cfg, logger: logger, store: store}, nil
}

func (a *app) close() {
	a.store.Close()
	_ = a.logger.Sync()
}

// trackRepo builds the track repository with the configured breaker.
func (a *app) trackRepo() *trackrepo.Repo {
	b := a.cfg.Database.Breaker
	return trackrepo.New(a.store, a.logger).WithBreaker(trackrepo.BreakerConfig{
		FailureThreshold: b.FailureThreshold,
		Timeout:          time.Duration(b.OpenTimeoutSec) * time.Second,
		MaxRequests:      b.HalfOpenRequests,
	})
}

func runEnsureIndex(ctx context.Context) error {
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.trackRepo().EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	a.logger.Info("Track index ready", zap.String("index", trackrepo.IndexName))
	return nil
}
