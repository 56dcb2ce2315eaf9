package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service and its CLI.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Token    TokenConfig
	Reader   ReaderConfig
	Issuer   IssuerConfig
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
	Addr            string
	Password        string
	DB              int
	RoleCacheTTLSec int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	ReaderRoles           []string
}

// TokenConfig controls attendance token validity.
type TokenConfig struct {
	TTLSeconds int
}

// ReaderConfig controls the scanning side.
type ReaderConfig struct {
	APIBaseURL           string
	RecordTimeoutSeconds int
	CooldownMillis       int
	FramesDir            string
	FramePollMillis      int
}

// IssuerConfig controls the issuing side presentation.
type IssuerConfig struct {
	PNGSize    int
	OutputPath string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	ttlSeconds := getEnvAsInt("TOKEN_TTL_SECONDS", 300)
	if ttlSeconds <= 0 {
		return nil, fmt.Errorf("invalid TOKEN_TTL_SECONDS: %d", ttlSeconds)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "attendance-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
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
			Addr:            getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:        os.Getenv("REDIS_PASSWORD"),
			DB:              redisDB,
			RoleCacheTTLSec: getEnvAsInt("REDIS_ROLE_CACHE_TTL_SECONDS", 60),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			ReaderRoles:           getEnvAsList("AUTH_READER_ROLES", []string{"OFFICER", "ADMIN"}),
		},
		Token: TokenConfig{
			TTLSeconds: ttlSeconds,
		},
		Reader: ReaderConfig{
			APIBaseURL:           strings.TrimRight(getEnv("READER_API_BASE_URL", "http://127.0.0.1:8080"), "/"),
			RecordTimeoutSeconds: getEnvAsInt("READER_RECORD_TIMEOUT_SECONDS", 10),
			CooldownMillis:       getEnvAsInt("READER_COOLDOWN_MILLIS", 2000),
			FramesDir:            getEnv("READER_FRAMES_DIR", "frames"),
			FramePollMillis:      getEnvAsInt("READER_FRAME_POLL_MILLIS", 100),
		},
		Issuer: IssuerConfig{
			PNGSize:    getEnvAsInt("ISSUER_PNG_SIZE", 256),
			OutputPath: getEnv("ISSUER_OUTPUT_PATH", "attendance-code.png"),
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

// RoleCacheTTL returns how long role lookups stay cached.
func (r RedisConfig) RoleCacheTTL() time.Duration {
	return time.Duration(r.RoleCacheTTLSec) * time.Second
}

// TTL returns the attendance token validity window.
func (t TokenConfig) TTL() time.Duration {
	return time.Duration(t.TTLSeconds) * time.Second
}

// RecordTimeout bounds a single attendance submission. Zero disables the bound.
func (r ReaderConfig) RecordTimeout() time.Duration {
	if r.RecordTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(r.RecordTimeoutSeconds) * time.Second
}

// Cooldown is the pause after a scan outcome before the next scan is accepted.
func (r ReaderConfig) Cooldown() time.Duration {
	return time.Duration(r.CooldownMillis) * time.Millisecond
}

// FramePoll is the interval at which the frame directory is polled.
func (r ReaderConfig) FramePoll() time.Duration {
	if r.FramePollMillis <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(r.FramePollMillis) * time.Millisecond
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
