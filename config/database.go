package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
)

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"                    envDefault:"localhost"`
	Port     int    `env:"PORT"                    envDefault:"5432"`
	User     string `env:"USER"                    envDefault:"promptjobs"`
	Password string `env:"PASSWORD"                envDefault:"promptjobs"`
	Name     string `env:"NAME"                    envDefault:"promptjobs"`
	SSLMode  string `env:"SSL_MODE"                envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
	MaxOpenConns         int  `env:"MAX_OPEN_CONNS"          envDefault:"20"`
}

// DSN renders the pgx connection URL. Credentials are escaped by net/url.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	q.Set("sslmode", c.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// StoreKind selects the job store implementation.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreRedis    StoreKind = "redis"
	StoreMemory   StoreKind = "memory"
)

// StoreConfig selects and tunes the job store.
type StoreConfig struct {
	Kind StoreKind `env:"JOB_STORE" envDefault:"postgres"`
	// RedisKeyPrefix namespaces job keys; keep a {hash tag} for cluster deployments.
	RedisKeyPrefix string `env:"JOB_STORE_REDIS_PREFIX" envDefault:"promptjobs:{jobs}:"`
}

// Sanitize normalises the store kind, falling back to postgres for unknown values.
func (s *StoreConfig) Sanitize() {
	s.Kind = StoreKind(strings.ToLower(strings.TrimSpace(string(s.Kind))))
	switch s.Kind {
	case StorePostgres, StoreRedis, StoreMemory:
	default:
		s.Kind = StorePostgres
	}
	s.RedisKeyPrefix = strings.TrimSpace(s.RedisKeyPrefix)
}
