package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the pgx database/sql driver
	"github.com/redis/go-redis/v9"

	"github.com/target/mmk-prompt-jobs/config"
	"github.com/target/mmk-prompt-jobs/internal/data"
)

const (
	connectTimeout     = 5 * time.Second
	defaultMaxOpenConn = 20
)

// ConnectDB opens the Postgres pool backing the job store and verifies it with a ping.
func ConnectDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConn
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(max(maxOpen/4, 1))
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := db.PingContext(pingCtx); pingErr != nil {
		if closeErr := db.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close database connection: %w", closeErr))
		}
		return nil, fmt.Errorf("ping database: %w", pingErr)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)
	}
	return db, nil
}

// redisMode names the Redis topology a client was built for.
type redisMode string

const (
	redisDirect   redisMode = "direct"
	redisSentinel redisMode = "sentinel"
	redisCluster  redisMode = "cluster"
)

// redisTarget is a constructed but not yet verified Redis client.
type redisTarget struct {
	mode   redisMode
	addr   string
	client redis.UniversalClient
}

// ConnectRedis builds the Redis client for the configured topology (cluster,
// sentinel, or a single node) and verifies it with a ping.
//
//nolint:ireturn // the job store only needs redis.UniversalClient, whatever the topology.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	target, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if pingErr := target.client.Ping(pingCtx).Err(); pingErr != nil {
		if closeErr := target.client.Close(); closeErr != nil {
			pingErr = errors.Join(pingErr, fmt.Errorf("close redis client: %w", closeErr))
		}
		return nil, fmt.Errorf("ping redis (%s): %w", target.mode, pingErr)
	}

	if logger != nil {
		logger.InfoContext(ctx, "redis connected", "mode", target.mode, "addr", redactRedisAddr(target.addr))
	}
	return target.client, nil
}

func newRedisClient(cfg config.RedisConfig) (*redisTarget, error) {
	switch {
	case cfg.UseCluster:
		return newClusterClient(cfg)
	case cfg.UseSentinel:
		return newSentinelClient(cfg)
	default:
		return newDirectClient(cfg)
	}
}

// newClusterClient uses REDIS_CLUSTER_NODES, falling back to REDIS_URI as a single seed node.
func newClusterClient(cfg config.RedisConfig) (*redisTarget, error) {
	opts := &redis.ClusterOptions{
		Addrs:    normalizeAddrs(cfg.ClusterNodes),
		Password: cfg.Password,
	}
	if len(opts.Addrs) == 0 {
		seed, err := parseRedisSeed(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("parse redis cluster url: %w", err)
		}
		if seed != nil {
			opts.Addrs = []string{seed.Addr}
			opts.Username = seed.Username
			opts.TLSConfig = seed.TLSConfig
			if seed.Password != "" {
				opts.Password = seed.Password
			}
		}
	}
	if len(opts.Addrs) == 0 {
		return nil, errors.New("redis cluster configuration requires at least one address")
	}

	return &redisTarget{
		mode:   redisCluster,
		addr:   strings.Join(opts.Addrs, ","),
		client: redis.NewClusterClient(opts),
	}, nil
}

func newSentinelClient(cfg config.RedisConfig) (*redisTarget, error) {
	nodes := normalizeAddrs(cfg.SentinelNodes)
	if len(nodes) == 0 {
		return nil, errors.New("redis sentinel configuration requires at least one sentinel node")
	}
	if strings.TrimSpace(cfg.SentinelMasterName) == "" {
		return nil, errors.New("redis sentinel configuration requires a master name")
	}

	return &redisTarget{
		mode: redisSentinel,
		addr: cfg.SentinelMasterName + "@" + strings.Join(nodes, ","),
		client: redis.NewFailoverClient(&redis.FailoverOptions{
			MasterName:       cfg.SentinelMasterName,
			SentinelAddrs:    nodes,
			Password:         cfg.Password,
			SentinelPassword: cfg.SentinelPassword,
			DB:               cfg.DB,
		}),
	}, nil
}

// newDirectClient accepts either a redis:// (or rediss://) URL or a bare host:port.
func newDirectClient(cfg config.RedisConfig) (*redisTarget, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, errors.New("redis direct configuration requires a URI")
	}

	opts := &redis.Options{Addr: uri, Password: cfg.Password, DB: cfg.DB}
	if isRedisURL(uri) {
		parsed, err := redis.ParseURL(uri)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	return &redisTarget{mode: redisDirect, addr: uri, client: redis.NewClient(opts)}, nil
}

// parseRedisSeed turns REDIS_URI into a cluster seed. It returns nil for an empty URI.
func parseRedisSeed(uri string) (*redis.Options, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil //nolint:nilnil // no seed configured
	}
	if !isRedisURL(uri) {
		return &redis.Options{Addr: uri}, nil
	}
	return redis.ParseURL(uri)
}

func normalizeAddrs(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, addr := range raw {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func isRedisURL(value string) bool {
	return strings.HasPrefix(value, "redis://") || strings.HasPrefix(value, "rediss://")
}

// redactRedisAddr strips credentials from URL-form addresses before they are logged.
func redactRedisAddr(addr string) string {
	if !isRedisURL(addr) {
		return addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "redis://<unparseable>"
	}
	if u.User != nil {
		u.User = url.User("*")
	}
	return u.String()
}

// RunMigrations applies the embedded job store migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if err := data.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "database migrations completed")
	}
	return nil
}
