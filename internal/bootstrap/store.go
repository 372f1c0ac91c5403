package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/core"
	"github.com/target/mmk-prompt-jobs/internal/data"
)

// Store is the selected job store together with the connections backing it.
type Store struct {
	Kind  config.StoreKind
	Jobs  core.JobRepository
	DB    *sql.DB
	Redis redis.UniversalClient
}

// Close releases the connections opened for the store.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var errs []error
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}

// OpenStore connects the job store selected by JOB_STORE and runs migrations for Postgres
// when enabled.
func OpenStore(ctx context.Context, cfg *config.AppConfig, logger *slog.Logger) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	repoCfg := data.RepoConfig{Logger: logger}

	switch cfg.Store.Kind {
	case config.StoreMemory:
		logger.WarnContext(ctx, "using in-memory job store; jobs are lost on restart")
		return &Store{Kind: config.StoreMemory, Jobs: data.NewMemoryJobRepo(repoCfg)}, nil

	case config.StoreRedis:
		client, err := ConnectRedis(ctx, cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return &Store{
			Kind: config.StoreRedis,
			Jobs: data.NewRedisJobRepo(data.RedisRepoOptions{
				Client:    client,
				KeyPrefix: cfg.Store.RedisKeyPrefix,
				Config:    repoCfg,
			}),
			Redis: client,
		}, nil

	default:
		db, err := ConnectDB(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if cfg.Postgres.RunMigrationsOnStart {
			if err := RunMigrations(ctx, db, logger); err != nil {
				if cerr := db.Close(); cerr != nil {
					err = errors.Join(err, fmt.Errorf("close database: %w", cerr))
				}
				return nil, err
			}
		} else {
			logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
		}
		return &Store{Kind: config.StorePostgres, Jobs: data.NewJobRepo(db, repoCfg), DB: db}, nil
	}
}
