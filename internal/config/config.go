package config

import (
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string           `json:"env"`
	Http       HttpConfig       `json:"http"`
	Postgres   PostgresConfig   `json:"postgres"`
	Redis      RedisConfig      `json:"redis"`
	Auth       AuthConfig       `json:"auth"`
	Moderation ModerationConfig `json:"moderation"`
	Scoring    ScoringConfig    `json:"scoring"`
	Live       LiveConfig       `json:"live"`
	Webhook    WebhookConfig    `json:"webhook"`
	Report     ReportConfig     `json:"report"`
}

type HttpConfig struct {
	Port            string        `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type PostgresConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	User     string `json:"user"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"ssl_mode"`

	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
}

type AuthConfig struct {
	JWTSecret string        `json:"jwt_secret,omitempty"`
	TokenTTL  time.Duration `json:"token_ttl"`
}

type ModerationConfig struct {
	APIKey  string        `json:"api_key,omitempty"`
	BaseURL string        `json:"base_url,omitempty"`
	Timeout time.Duration `json:"timeout"`
	// AbuseThreshold is the acceptance-policy cutoff: submissions whose
	// abuse score exceeds it are rejected.
	AbuseThreshold float64 `json:"abuse_threshold"`
	Disabled       bool    `json:"disabled"`
}

type ScoringConfig struct {
	ReputationWeight float64 `json:"reputation_weight"`
	ConfidenceWeight float64 `json:"confidence_weight"`
}

type LiveConfig struct {
	SubscriberBuffer int           `json:"subscriber_buffer"`
	PingInterval     time.Duration `json:"ping_interval"`
	WriteTimeout     time.Duration `json:"write_timeout"`
}

type WebhookConfig struct {
	URL      string `json:"url"`
	Disabled bool   `json:"disabled"`
}

type ReportConfig struct {
	MaxDescriptionLen int `json:"max_description_len"`
	DefaultLimit      int `json:"default_limit"`
	MaxLimit          int `json:"max_limit"`
}

func Load() (*Config, error) {
	stdLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		stdLogger.Warn(".env load warning", slog.Any("error", err))
	}

	cfg := &Config{
		Env: getEnv("ENV", "local"),
		Http: HttpConfig{
			Port:            getEnv("HTTP_PORT", ":8080"),
			ReadTimeout:     getEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "pg-local"),
			Port:            getEnvInt("POSTGRES_PORT", 5432),
			Database:        getEnv("POSTGRES_DB", "travelhi_db"),
			User:            getEnv("POSTGRES_USER", "postgres"),
			Password:        getEnv("POSTGRES_PASSWORD", "postgres"),
			SSLMode:         getEnv("POSTGRES_SSL_MODE", "disable"),
			MaxConns:        20,
			MinConns:        1,
			MaxConnLifetime: 1 * time.Hour,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "redis-local:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			TokenTTL:  getEnvDuration("JWT_TOKEN_TTL", 24*time.Hour),
		},
		Moderation: ModerationConfig{
			APIKey:         getEnv("MODERATION_API_KEY", ""),
			BaseURL:        getEnv("MODERATION_BASE_URL", ""),
			Timeout:        getEnvDuration("MODERATION_TIMEOUT", 3*time.Second),
			AbuseThreshold: getEnvFloat("MODERATION_ABUSE_THRESHOLD", 0.5),
			Disabled:       getEnvBool("MODERATION_DISABLED", false),
		},
		Scoring: ScoringConfig{
			ReputationWeight: getEnvFloat("SCORE_REPUTATION_WEIGHT", 0.6),
			ConfidenceWeight: getEnvFloat("SCORE_CONFIDENCE_WEIGHT", 0.4),
		},
		Live: LiveConfig{
			SubscriberBuffer: getEnvInt("LIVE_SUBSCRIBER_BUFFER", 16),
			PingInterval:     getEnvDuration("LIVE_PING_INTERVAL", 30*time.Second),
			WriteTimeout:     getEnvDuration("LIVE_WRITE_TIMEOUT", 5*time.Second),
		},
		Webhook: WebhookConfig{
			URL:      getEnv("WEBHOOK_URL", ""),
			Disabled: getEnvBool("WEBHOOK_DISABLED", false),
		},
		Report: ReportConfig{
			MaxDescriptionLen: getEnvInt("REPORT_MAX_DESCRIPTION_LEN", 500),
			DefaultLimit:      getEnvInt("REPORT_DEFAULT_LIMIT", 50),
			MaxLimit:          getEnvInt("REPORT_MAX_LIMIT", 200),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	stdLogger.Info("Config loaded successfully",
		slog.String("env", cfg.Env),
		slog.String("http_port", cfg.Http.Port),
		slog.String("postgres_db", cfg.Postgres.Database),
		slog.String("redis_addr", cfg.Redis.Addr),
		slog.Bool("moderation_disabled", cfg.Moderation.Disabled),
	)

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Http.Port == "" || c.Http.Port[0] != ':' {
		return errors.New("HTTP_PORT must start with ':' like ':8080'")
	}
	if c.Postgres.Host == "" {
		return errors.New("POSTGRES_HOST required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET required")
	}
	if c.Moderation.AbuseThreshold < 0 || c.Moderation.AbuseThreshold > 1 {
		return errors.New("MODERATION_ABUSE_THRESHOLD must be in [0,1]")
	}
	if c.Report.MaxDescriptionLen <= 0 {
		return errors.New("REPORT_MAX_DESCRIPTION_LEN must be positive")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
