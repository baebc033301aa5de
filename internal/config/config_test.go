package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" || cfg.GRPCPort != "9090" {
		t.Fatalf("unexpected ports: %s/%s", cfg.Port, cfg.GRPCPort)
	}
	if cfg.Chat.ThinkDelay != 1500*time.Millisecond || cfg.Chat.ThinkJitter != time.Second {
		t.Fatalf("unexpected think delay: %v + %v", cfg.Chat.ThinkDelay, cfg.Chat.ThinkJitter)
	}
	if cfg.Chat.SessionTTL != time.Hour {
		t.Fatalf("unexpected session ttl: %v", cfg.Chat.SessionTTL)
	}
	if cfg.RateLimit.Requests != 10 || cfg.RateLimit.Window != time.Minute {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if !cfg.ConversationLog.Enabled || cfg.ConversationLog.QueueSize != 1000 {
		t.Fatalf("unexpected conversation log config: %+v", cfg.ConversationLog)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("PORT", "3000")
	t.Setenv("CHAT_THINK_DELAY", "0s")
	t.Setenv("RATE_LIMIT_REQUESTS", "2")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("DEFAULT_LANGUAGE", "hi")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "3000" || cfg.Chat.ThinkDelay != 0 || cfg.RateLimit.Requests != 2 {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.RateLimit.RedisAddr != "localhost:6379" || cfg.Chat.DefaultLanguage != "hi" {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	yaml := "port: \"7000\"\nchat:\n  think_delay: 250ms\nrate_limit:\n  requests: 5\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("RATE_LIMIT_REQUESTS", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("expected port from file, got %s", cfg.Port)
	}
	if cfg.Chat.ThinkDelay != 250*time.Millisecond {
		t.Fatalf("expected think delay from file, got %v", cfg.Chat.ThinkDelay)
	}
	if cfg.RateLimit.Requests != 7 {
		t.Fatalf("expected env to override file, got %d", cfg.RateLimit.Requests)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port: "8080", GRPCPort: "9090", DBPath: "db", LogLevel: "info",
			Chat:      ChatConfig{SessionTTL: time.Hour, SweepInterval: time.Minute},
			RateLimit: RateLimitConfig{Requests: 1, Window: time.Second},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty port", func(c *Config) { c.Port = "" }},
		{"empty grpc port", func(c *Config) { c.GRPCPort = "" }},
		{"empty db path", func(c *Config) { c.DBPath = "" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"negative delay", func(c *Config) { c.Chat.ThinkDelay = -time.Second }},
		{"zero ttl", func(c *Config) { c.Chat.SessionTTL = 0 }},
		{"zero window", func(c *Config) { c.RateLimit.Window = 0 }},
		{"log without dir", func(c *Config) { c.ConversationLog = ConversationLogConfig{Enabled: true, QueueSize: 1} }},
	}

	base := valid()
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	tests := []struct {
		cfg  Config
		want bool
	}{
		{Config{}, true},
		{Config{FrontendURL: "http://localhost:5173"}, true},
		{Config{FrontendURL: "https://krishi.example.org"}, false},
		{Config{AppEnv: "development", FrontendURL: "https://krishi.example.org"}, true},
		{Config{AppEnv: "production"}, false},
	}
	for _, tt := range tests {
		if got := tt.cfg.IsDevelopment(); got != tt.want {
			t.Errorf("IsDevelopment(%+v) = %v, want %v", tt.cfg, got, tt.want)
		}
	}
}

func TestAllowedOrigins(t *testing.T) {
	if got := (&Config{}).AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Fatalf("expected wildcard, got %v", got)
	}
	got := (&Config{FrontendURL: "https://krishi.example.org/"}).AllowedOrigins()
	if len(got) != 1 || got[0] != "https://krishi.example.org" {
		t.Fatalf("unexpected origins: %v", got)
	}
}

func TestNewLoggerFansOut(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := newLogger(&stderr, &file, slog.LevelInfo)

	logger.Debug("hidden")
	logger.Info("Chat session started", "user_id", "u1")

	if !strings.Contains(stderr.String(), "user_id=u1") {
		t.Fatalf("expected text output on stderr, got %q", stderr.String())
	}
	var entry map[string]any
	if err := json.Unmarshal(file.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON line in file, got %q: %v", file.String(), err)
	}
	if entry["msg"] != "Chat session started" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestNewLoggerConsoleOnly(t *testing.T) {
	var stderr bytes.Buffer
	newLogger(&stderr, nil, slog.LevelDebug).Debug("sweeper tick")
	if !strings.Contains(stderr.String(), "msg=\"sweeper tick\"") {
		t.Fatalf("expected debug line on console, got %q", stderr.String())
	}
}

func TestSetupLoggerWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "advisor.log")
	logger, cleanup := SetupLogger(path, slog.LevelInfo)
	logger.Info("hello")
	if err := cleanup(); err != nil {
		t.Fatalf("cleanup failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("unexpected log file contents: %q", data)
	}
}
