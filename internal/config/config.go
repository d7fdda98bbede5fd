package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAutoCloseGraceMinutes is two days.
const DefaultAutoCloseGraceMinutes = 2 * 24 * 60

// Config aggregates runtime configuration for the help desk service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Engine       EngineConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds pool settings. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig holds stub notification endpoints and the event stream name.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
	Stream     string
}

// EngineConfig tunes the ticket lifecycle engine.
type EngineConfig struct {
	// AutoCloseGraceMinutes is how long a Finalizado ticket waits for an evaluation.
	AutoCloseGraceMinutes int
	SweepSchedule         string
	SweepBatch            int
	LoadCacheTTLSeconds   int
	// UnassignedSentinel is the initial-responsible value meaning "unassigned pool".
	UnassignedSentinel string
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisCfg, err := loadRedis()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:      loadApp(),
		Postgres: loadPostgres(),
		Redis:    redisCfg,
		Logger:   LoggerConfig{Level: getEnv("LOG_LEVEL", "info")},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
			Stream:     getEnv("NOTIFY_STREAM", "helpdesk:events"),
		},
		Engine: loadEngine(),
	}

	if err := cfg.Engine.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadApp() AppConfig {
	return AppConfig{
		Name:                  getEnv("APP_NAME", "helpdesk-service"),
		Env:                   getEnv("APP_ENV", "development"),
		Host:                  getEnv("APP_HOST", "0.0.0.0"),
		Port:                  getEnv("APP_PORT", "8080"),
		Version:               getEnv("APP_VERSION", "dev"),
		RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
	}
}

func loadPostgres() PostgresConfig {
	return PostgresConfig{
		DSN:            os.Getenv("POSTGRES_DSN"),
		MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
		MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
		RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
		ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
		ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
	}
}

// Unlike the other integers, a malformed REDIS_DB is an error.
func loadRedis() (RedisConfig, error) {
	db, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

func loadEngine() EngineConfig {
	defaults := DefaultEngineConfig()
	return EngineConfig{
		AutoCloseGraceMinutes: getEnvAsInt("ENGINE_AUTOCLOSE_GRACE_MINUTES", defaults.AutoCloseGraceMinutes),
		SweepSchedule:         getEnv("ENGINE_SWEEP_SCHEDULE", defaults.SweepSchedule),
		SweepBatch:            getEnvAsInt("ENGINE_SWEEP_BATCH", defaults.SweepBatch),
		LoadCacheTTLSeconds:   getEnvAsInt("ENGINE_LOAD_CACHE_TTL_SECONDS", defaults.LoadCacheTTLSeconds),
		UnassignedSentinel:    getEnv("ENGINE_UNASSIGNED_SENTINEL", defaults.UnassignedSentinel),
	}
}

// DefaultEngineConfig returns the engine defaults without reading the environment.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		AutoCloseGraceMinutes: DefaultAutoCloseGraceMinutes,
		SweepSchedule:         "@every 5m",
		SweepBatch:            500,
		LoadCacheTTLSeconds:   30,
		UnassignedSentinel:    "RITO",
	}
}

// Validate rejects engine settings the lifecycle cannot run with.
func (e EngineConfig) Validate() error {
	var problems []string
	if e.AutoCloseGraceMinutes <= 0 {
		problems = append(problems, "ENGINE_AUTOCLOSE_GRACE_MINUTES must be positive")
	}
	if strings.TrimSpace(e.SweepSchedule) == "" {
		problems = append(problems, "ENGINE_SWEEP_SCHEDULE must not be empty")
	}
	if strings.TrimSpace(e.UnassignedSentinel) == "" {
		problems = append(problems, "ENGINE_UNASSIGNED_SENTINEL must not be empty")
	}
	if len(problems) > 0 {
		return errors.New("invalid engine config: " + strings.Join(problems, "; "))
	}
	return nil
}

// AutoCloseGrace returns the evaluation grace window.
func (e EngineConfig) AutoCloseGrace() time.Duration {
	if e.AutoCloseGraceMinutes <= 0 {
		return DefaultAutoCloseGraceMinutes * time.Minute
	}
	return time.Duration(e.AutoCloseGraceMinutes) * time.Minute
}

// LoadCacheTTL returns how long a technician load snapshot may be served.
func (e EngineConfig) LoadCacheTTL() time.Duration {
	return seconds(e.LoadCacheTTLSeconds)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return a.Host + ":" + a.Port
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

func (p PostgresConfig) IdleTimeout() time.Duration {
	return seconds(int(p.ConnMaxIdleSec))
}

func (p PostgresConfig) MaxLifetime() time.Duration {
	return seconds(int(p.ConnMaxLifeSec))
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && strings.TrimSpace(val) != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	parsed, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	parsed, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return parsed
}
