package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	Orchestrator OrchestratorConfig
	Mail         MailConfig
	Dispatch     DispatchConfig
	Events       EventsConfig
	Sweep        SweepConfig
	Matching     MatchingConfig
	Telemetry    TelemetryConfig
}

type DatabaseConfig struct {
	Driver       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	SQLitePath   string
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Issuer     string
	Expiration time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// OrchestratorConfig carries organisation-wide values the lifecycle handlers need.
type OrchestratorConfig struct {
	OrgName        string
	AdminEmail     string
	HeadRole       string
	LeadRoleSuffix string
	ConfirmDelay   time.Duration
}

// MailConfig configures the outbound SMTP transport. An empty host selects the logging transport.
type MailConfig struct {
	Host        string
	Port        int
	Username    string
	Password    string
	FromAddress string
	FromName    string
}

// DispatchConfig tunes per-event notification fan-out.
type DispatchConfig struct {
	Workers     int
	MaxAttempts int
	RetryDelay  time.Duration
	LedgerTTL   time.Duration
}

// EventsConfig tunes the event queue and the Postgres change listener.
type EventsConfig struct {
	Workers           int
	BufferSize        int
	MaxRetries        int
	RetryDelay        time.Duration
	InvocationTimeout time.Duration
	ListenEnabled     bool
	ListenChannel     string
}

// SweepConfig controls the daily auto-completion sweep.
type SweepConfig struct {
	Enabled        bool
	Cron           string
	Timezone       string
	EmitCompletion bool
}

// MatchingConfig toggles cycle-day resolution for requested slots.
type MatchingConfig struct {
	ResolveCycleDay bool
	CycleDayTTL     time.Duration
}

// TelemetryConfig enables OTLP trace export.
type TelemetryConfig struct {
	Enabled     bool
	Endpoint    string
	ServiceName string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		SQLitePath:   v.GetString("DB_SQLITE_PATH"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Issuer:     v.GetString("JWT_ISSUER"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 30*24*time.Hour),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Orchestrator = OrchestratorConfig{
		OrgName:        v.GetString("ORG_NAME"),
		AdminEmail:     v.GetString("ADMIN_EMAIL"),
		HeadRole:       v.GetString("HEAD_ROLE"),
		LeadRoleSuffix: v.GetString("LEAD_ROLE_SUFFIX"),
		ConfirmDelay:   parseDuration(v.GetString("SESSION_CONFIRM_DELAY"), 5*time.Minute),
	}

	cfg.Mail = MailConfig{
		Host:        v.GetString("SMTP_HOST"),
		Port:        v.GetInt("SMTP_PORT"),
		Username:    v.GetString("SMTP_USERNAME"),
		Password:    v.GetString("SMTP_PASSWORD"),
		FromAddress: v.GetString("MAIL_FROM_ADDRESS"),
		FromName:    v.GetString("MAIL_FROM_NAME"),
	}

	cfg.Dispatch = DispatchConfig{
		Workers:     v.GetInt("DISPATCH_WORKERS"),
		MaxAttempts: v.GetInt("DISPATCH_MAX_ATTEMPTS"),
		RetryDelay:  parseDuration(v.GetString("DISPATCH_RETRY_DELAY"), 2*time.Second),
		LedgerTTL:   parseDuration(v.GetString("DISPATCH_LEDGER_TTL"), 72*time.Hour),
	}

	cfg.Events = EventsConfig{
		Workers:           v.GetInt("EVENT_WORKERS"),
		BufferSize:        v.GetInt("EVENT_BUFFER_SIZE"),
		MaxRetries:        v.GetInt("EVENT_MAX_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("EVENT_RETRY_DELAY"), 5*time.Second),
		InvocationTimeout: parseDuration(v.GetString("EVENT_INVOCATION_TIMEOUT"), 9*time.Minute),
		ListenEnabled:     v.GetBool("EVENT_LISTEN_ENABLED"),
		ListenChannel:     v.GetString("EVENT_LISTEN_CHANNEL"),
	}

	cfg.Sweep = SweepConfig{
		Enabled:        v.GetBool("SWEEP_ENABLED"),
		Cron:           v.GetString("SWEEP_CRON"),
		Timezone:       v.GetString("SWEEP_TIMEZONE"),
		EmitCompletion: v.GetBool("SWEEP_EMIT_COMPLETION"),
	}

	cfg.Matching = MatchingConfig{
		ResolveCycleDay: v.GetBool("MATCH_RESOLVE_CYCLE_DAY"),
		CycleDayTTL:     parseDuration(v.GetString("CYCLE_DAY_CACHE_TTL"), 12*time.Hour),
	}

	cfg.Telemetry = TelemetryConfig{
		Enabled:     v.GetBool("OTEL_ENABLED"),
		Endpoint:    v.GetString("OTEL_ENDPOINT"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_DRIVER", DriverPostgres)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "peer_tutoring")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_SQLITE_PATH", "file:tutoring.db?_pragma=foreign_keys(1)")
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "tutoring-orchestrator")
	v.SetDefault("JWT_EXPIRATION", "720h")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ORG_NAME", "HW Peer Tutoring")
	v.SetDefault("ADMIN_EMAIL", "uspeertutoring@hw.com")
	v.SetDefault("HEAD_ROLE", "Head")
	v.SetDefault("LEAD_ROLE_SUFFIX", " Lead")
	v.SetDefault("SESSION_CONFIRM_DELAY", "5m")

	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM_ADDRESS", "uspeertutoring@hw.com")
	v.SetDefault("MAIL_FROM_NAME", "HW Peer Tutoring")

	v.SetDefault("DISPATCH_WORKERS", 4)
	v.SetDefault("DISPATCH_MAX_ATTEMPTS", 1)
	v.SetDefault("DISPATCH_RETRY_DELAY", "2s")
	v.SetDefault("DISPATCH_LEDGER_TTL", "72h")

	v.SetDefault("EVENT_WORKERS", 4)
	v.SetDefault("EVENT_BUFFER_SIZE", 64)
	v.SetDefault("EVENT_MAX_RETRIES", 3)
	v.SetDefault("EVENT_RETRY_DELAY", "5s")
	v.SetDefault("EVENT_INVOCATION_TIMEOUT", "9m")
	v.SetDefault("EVENT_LISTEN_ENABLED", false)
	v.SetDefault("EVENT_LISTEN_CHANNEL", "tutoring_events")

	v.SetDefault("SWEEP_ENABLED", true)
	v.SetDefault("SWEEP_CRON", "0 1 * * *")
	v.SetDefault("SWEEP_TIMEZONE", "America/Los_Angeles")
	v.SetDefault("SWEEP_EMIT_COMPLETION", true)

	v.SetDefault("MATCH_RESOLVE_CYCLE_DAY", false)
	v.SetDefault("CYCLE_DAY_CACHE_TTL", "12h")

	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "tutoring-orchestrator")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
