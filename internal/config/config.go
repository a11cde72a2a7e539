package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Authz        AuthzConfig
	Tickets      TicketsConfig
	Notification NotificationConfig
	NATS         NATSConfig
	S3           S3Config
	CRM          CRMConfig
	AI           AIConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. Redis only backs the grant cache
// and the CRM sync lock, so timeouts stay short and callers degrade on failure.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	ReadTimeout time.Duration
	PingTimeout time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// AuthzConfig tunes the permission grant cache.
type AuthzConfig struct {
	GrantCacheTTL time.Duration
}

// TicketsConfig holds ticket list behavior.
type TicketsConfig struct {
	StaleAfter      time.Duration
	DefaultPageSize int
	MaxPageSize     int
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// NATSConfig configures the realtime broker. An empty URL selects the in-process broker.
type NATSConfig struct {
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	PingInterval   time.Duration
	AllowReconnect bool
	DrainTimeout   time.Duration
}

// S3Config configures attachment storage.
type S3Config struct {
	Enabled   bool
	Bucket    string
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
}

// CRMConfig configures the external helpdesk bridge.
type CRMConfig struct {
	BaseURL      string
	APIKey       string
	Timeout      time.Duration
	PageSize     int
	SyncEnabled  bool
	SyncSchedule string
	SyncLockTTL  time.Duration
}

// AIConfig configures the chat widget assistant.
type AIConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			PoolSize:    getEnvAsInt("REDIS_POOL_SIZE", 20),
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout: getEnvAsDuration("REDIS_READ_TIMEOUT", 500*time.Millisecond),
			PingTimeout: getEnvAsDuration("REDIS_PING_TIMEOUT", 3*time.Second),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Authz: AuthzConfig{
			GrantCacheTTL: getEnvAsDuration("AUTHZ_GRANT_CACHE_TTL", 5*time.Minute),
		},
		Tickets: TicketsConfig{
			StaleAfter:      time.Duration(getEnvAsInt("TICKETS_STALE_AFTER_HOURS", 48)) * time.Hour,
			DefaultPageSize: getEnvAsInt("TICKETS_DEFAULT_PAGE_SIZE", 20),
			MaxPageSize:     getEnvAsInt("TICKETS_MAX_PAGE_SIZE", 100),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		NATS: NATSConfig{
			URL:            os.Getenv("NATS_URL"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 60),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 2*time.Second),
			PingInterval:   getEnvAsDuration("NATS_PING_INTERVAL", 20*time.Second),
			AllowReconnect: getEnvAsBool("NATS_ALLOW_RECONNECT", true),
			DrainTimeout:   getEnvAsDuration("NATS_DRAIN_TIMEOUT", 30*time.Second),
		},
		S3: S3Config{
			Enabled:   getEnvAsBool("S3_ENABLED", false),
			Bucket:    os.Getenv("S3_BUCKET"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			Region:    getEnv("S3_REGION", "us-east-1"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
		},
		CRM: CRMConfig{
			BaseURL:      os.Getenv("CRM_BASE_URL"),
			APIKey:       os.Getenv("CRM_API_KEY"),
			Timeout:      getEnvAsDuration("CRM_TIMEOUT", 15*time.Second),
			PageSize:     getEnvAsInt("CRM_PAGE_SIZE", 50),
			SyncEnabled:  getEnvAsBool("CRM_SYNC_ENABLED", false),
			SyncSchedule: getEnv("CRM_SYNC_SCHEDULE", "@every 5m"),
			SyncLockTTL:  getEnvAsDuration("CRM_SYNC_LOCK_TTL", 4*time.Minute),
		},
		AI: AIConfig{
			BaseURL:      getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:       os.Getenv("AI_API_KEY"),
			Model:        getEnv("AI_MODEL", "gpt-4o-mini"),
			SystemPrompt: getEnv("AI_SYSTEM_PROMPT", "You are the helpdesk assistant. Answer briefly and offer to connect the visitor with an agent when you cannot help."),
			Timeout:      getEnvAsDuration("AI_TIMEOUT", 20*time.Second),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Development reports whether the service runs outside production.
func (a AppConfig) Development() bool {
	return strings.EqualFold(a.Env, "development") || strings.EqualFold(a.Env, "dev")
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Configured reports whether the CRM bridge has an endpoint.
func (c CRMConfig) Configured() bool {
	return c.BaseURL != ""
}

// Configured reports whether an assistant key is present.
func (c AIConfig) Configured() bool {
	return c.APIKey != ""
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
