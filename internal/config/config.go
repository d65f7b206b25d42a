package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	Orders   OrdersConfig
}

type ServerConfig struct {
	Host          string
	Port          int
	PublicBaseURL string
	StaticDir     string
	AllowOrigins  []string
	// AdminToken is the bearer token for /admin; empty disables those routes.
	AdminToken string
}

type StoreConfig struct {
	Driver string
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int32
	Migrate  bool
}

// DSN returns the connection URL for the pool and the migrator. Credentials
// and database name are escaped.
func (c PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}

type RedisConfig struct {
	Enabled        bool
	Addr           string
	Password       string
	DB             int
	SearchCacheTTL time.Duration
}

type RabbitMQConfig struct {
	// URL is empty when order events are disabled.
	URL      string
	Exchange string
}

type OrdersConfig struct {
	IdempotencyTTL time.Duration
	RateLimit      int
	RateWindow     time.Duration
}

// New reads the configuration from the environment, loading .env first if it
// exists.
func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := envInt("SERVER_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host:          os.Getenv("SERVER_HOST"),
		Port:          serverPort,
		PublicBaseURL: envString("PUBLIC_BASE_URL", "http://localhost:3000"),
		StaticDir:     envString("STATIC_DIR", "static"),
		AllowOrigins:  splitList(envString("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		AdminToken:    os.Getenv("ADMIN_TOKEN"),
	}

	driver := envString("STORE_DRIVER", StoreDriverPostgres)
	if driver != StoreDriverPostgres && driver != StoreDriverMemory {
		return nil, fmt.Errorf("%s: invalid STORE_DRIVER %q", op, driver)
	}

	postgresCfg, err := postgresFromEnv(driver == StoreDriverPostgres)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg, err := redisFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ordersCfg, err := ordersFromEnv()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:   serverCfg,
		Store:    StoreConfig{Driver: driver},
		Postgres: postgresCfg,
		Redis:    redisCfg,
		RabbitMQ: RabbitMQConfig{
			URL:      os.Getenv("RABBITMQ_URL"),
			Exchange: envString("RABBITMQ_EXCHANGE", "lessonbook"),
		},
		Orders: ordersCfg,
	}, nil
}

// postgresFromEnv reads the POSTGRES_* keys. Credentials are only required
// when the postgres store is selected.
func postgresFromEnv(required bool) (PostgresConfig, error) {
	port, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := envInt("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return PostgresConfig{}, err
	}

	migrate, err := envBool("POSTGRES_MIGRATE", true)
	if err != nil {
		return PostgresConfig{}, err
	}

	cfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     envString("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		MaxConns: int32(maxConns),
		Migrate:  migrate,
	}

	if !required {
		return cfg, nil
	}

	if cfg.User == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	if cfg.Password == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	if cfg.Name == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return cfg, nil
}

func redisFromEnv() (RedisConfig, error) {
	enabled, err := envBool("REDIS_ENABLED", true)
	if err != nil {
		return RedisConfig{}, err
	}

	db, err := envInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}

	ttl, err := envDuration("SEARCH_CACHE_TTL", 30*time.Second)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:        enabled,
		Addr:           envString("REDIS_ADDR", "localhost:6379"),
		Password:       os.Getenv("REDIS_PASSWORD"),
		DB:             db,
		SearchCacheTTL: ttl,
	}, nil
}

func ordersFromEnv() (OrdersConfig, error) {
	idemTTL, err := envDuration("IDEMPOTENCY_TTL", 2*time.Hour)
	if err != nil {
		return OrdersConfig{}, err
	}

	limit, err := envInt("ORDER_RATE_LIMIT", 10)
	if err != nil {
		return OrdersConfig{}, err
	}

	window, err := envDuration("ORDER_RATE_WINDOW", time.Minute)
	if err != nil {
		return OrdersConfig{}, err
	}

	return OrdersConfig{
		IdempotencyTTL: idemTTL,
		RateLimit:      limit,
		RateWindow:     window,
	}, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
