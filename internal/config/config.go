package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the client.
type Config struct {
	App      AppConfig
	API      APIConfig
	Storage  StorageConfig
	Events   EventsConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Session  SessionConfig
	Connect  ConnectConfig
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

// APIConfig points at the remote reporting service.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// StorageConfig selects where credentials are persisted.
type StorageConfig struct {
	// Backend is one of memory, redis, postgres or file.
	Backend              string
	FilePath             string
	Secret               string
	PurgeIntervalSeconds int
}

// EventsConfig selects the storage-change notification channel.
type EventsConfig struct {
	// Backend is one of memory or redis.
	Backend string
	Channel string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	// Output is a zap sink such as stdout, stderr or a file path.
	Output string
}

// SessionConfig configures the browser-session cookie and redirect targets.
type SessionConfig struct {
	CookieName   string
	CookieSecure bool
	LoginPath    string
	HomePath     string
}

// ConnectConfig bounds retries when dialing Redis or Postgres at startup.
type ConnectConfig struct {
	MaxElapsedSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ecoai-client"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		API: APIConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://127.0.0.1:8000/api"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 15),
		},
		Storage: StorageConfig{
			Backend:              getEnv("STORAGE_BACKEND", "memory"),
			FilePath:             getEnv("STORAGE_FILE", defaultStorageFile()),
			Secret:               getEnv("STORAGE_SECRET", "dev-secret"),
			PurgeIntervalSeconds: getEnvAsInt("STORAGE_PURGE_INTERVAL_SECONDS", 300),
		},
		Events: EventsConfig{
			Backend: getEnv("EVENTS_BACKEND", "memory"),
			Channel: getEnv("EVENTS_CHANNEL", "ecoai:storage"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Session: SessionConfig{
			CookieName:   getEnv("SESSION_COOKIE_NAME", "ecoai_client"),
			CookieSecure: getEnvAsBool("SESSION_COOKIE_SECURE", false),
			LoginPath:    getEnv("SESSION_LOGIN_PATH", "/login"),
			HomePath:     getEnv("SESSION_HOME_PATH", "/"),
		},
		Connect: ConnectConfig{
			MaxElapsedSeconds: getEnvAsInt("CONNECT_MAX_ELAPSED_SECONDS", 30),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout for the remote API.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// PurgeInterval returns how often expired entries are removed.
func (s StorageConfig) PurgeInterval() time.Duration {
	if s.PurgeIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(s.PurgeIntervalSeconds) * time.Second
}

// MaxElapsed returns how long startup connects may keep retrying.
func (c ConnectConfig) MaxElapsed() time.Duration {
	if c.MaxElapsedSeconds <= 0 {
		return 0
	}
	return time.Duration(c.MaxElapsedSeconds) * time.Second
}

func defaultStorageFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".ecoai/storage.yaml"
	}
	return dir + "/ecoai/storage.yaml"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
