// Package config provides application configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all application configuration.
type Config struct {
	AppEnv      string `yaml:"app_env" env:"APP_ENV"`
	Port        string `yaml:"port" env:"PORT" env-default:"8080"`
	GRPCPort    string `yaml:"grpc_port" env:"GRPC_PORT" env-default:"9090"`
	FrontendURL string `yaml:"frontend_url" env:"FRONTEND_URL"`
	DBPath      string `yaml:"db_path" env:"DB_PATH" env-default:"./data/advisor.db"`
	LogFile     string `yaml:"log_file" env:"LOG_FILE" env-default:"./data/logs/advisor.log"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`

	Chat            ChatConfig            `yaml:"chat"`
	RateLimit       RateLimitConfig       `yaml:"rate_limit"`
	ConversationLog ConversationLogConfig `yaml:"conversation_log"`
}

// ChatConfig tunes advisor sessions.
type ChatConfig struct {
	ThinkDelay      time.Duration `yaml:"think_delay" env:"CHAT_THINK_DELAY" env-default:"1500ms"`
	ThinkJitter     time.Duration `yaml:"think_jitter" env:"CHAT_THINK_JITTER" env-default:"1000ms"`
	SessionTTL      time.Duration `yaml:"session_ttl" env:"CHAT_SESSION_TTL" env-default:"60m"`
	SweepInterval   time.Duration `yaml:"sweep_interval" env:"CHAT_SWEEP_INTERVAL" env-default:"5m"`
	DefaultLanguage string        `yaml:"default_language" env:"DEFAULT_LANGUAGE"`
}

// RateLimitConfig bounds submissions per user. RedisAddr switches the
// limiter from in-process to Redis.
type RateLimitConfig struct {
	Requests    int           `yaml:"requests" env:"RATE_LIMIT_REQUESTS" env-default:"10"`
	Window      time.Duration `yaml:"window" env:"RATE_LIMIT_WINDOW" env-default:"1m"`
	RedisAddr   string        `yaml:"redis_addr" env:"REDIS_ADDR"`
	RedisPrefix string        `yaml:"redis_prefix" env:"REDIS_PREFIX" env-default:"krishi:ratelimit"`
}

// ConversationLogConfig controls JSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool   `yaml:"enabled" env:"CONVERSATION_LOG_ENABLED" env-default:"true"`
	Dir           string `yaml:"dir" env:"CONVERSATION_LOG_DIR" env-default:"./data/logs/conversations"`
	GlobalEnabled bool   `yaml:"global_enabled" env:"CONVERSATION_LOG_GLOBAL_ENABLED" env-default:"false"`
	GlobalPath    string `yaml:"global_path" env:"CONVERSATION_LOG_GLOBAL_PATH" env-default:"./data/logs/conversations/all.ndjson"`
	QueueSize     int    `yaml:"queue_size" env:"CONVERSATION_LOG_QUEUE_SIZE" env-default:"1000"`
}

// Load reads the optional YAML file named by CONFIG_PATH, then
// environment variables, which take precedence.
func Load() (*Config, error) {
	var cfg Config
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("PORT cannot be empty")
	}
	if c.GRPCPort == "" {
		return errors.New("GRPC_PORT cannot be empty")
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH cannot be empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.Chat.ThinkDelay < 0 || c.Chat.ThinkJitter < 0 {
		return errors.New("CHAT_THINK_DELAY and CHAT_THINK_JITTER must be >= 0")
	}
	if c.Chat.SessionTTL <= 0 || c.Chat.SweepInterval <= 0 {
		return errors.New("CHAT_SESSION_TTL and CHAT_SWEEP_INTERVAL must be > 0")
	}
	if c.RateLimit.Requests <= 0 {
		return errors.New("RATE_LIMIT_REQUESTS must be > 0")
	}
	if c.RateLimit.Window <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be > 0")
	}
	if c.ConversationLog.Enabled {
		if c.ConversationLog.Dir == "" {
			return errors.New("CONVERSATION_LOG_DIR cannot be empty")
		}
		if c.ConversationLog.GlobalEnabled && c.ConversationLog.GlobalPath == "" {
			return errors.New("CONVERSATION_LOG_GLOBAL_PATH cannot be empty")
		}
		if c.ConversationLog.QueueSize <= 0 {
			return errors.New("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
		}
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if c.AppEnv != "" {
		return c.AppEnv == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the CORS origins for FrontendURL.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
}
