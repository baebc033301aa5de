// Krishi Mitra - farmer advisory server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"

	"github.com/krishimitra/advisor/internal/api"
	"github.com/krishimitra/advisor/internal/chat"
	"github.com/krishimitra/advisor/internal/chatlog"
	"github.com/krishimitra/advisor/internal/config"
	"github.com/krishimitra/advisor/internal/health"
	"github.com/krishimitra/advisor/internal/identity"
	"github.com/krishimitra/advisor/internal/intent"
	"github.com/krishimitra/advisor/internal/local"
	"github.com/krishimitra/advisor/internal/middleware"
	"github.com/krishimitra/advisor/internal/ratelimit"
	"github.com/krishimitra/advisor/internal/responder"
	"github.com/krishimitra/advisor/internal/store"
	"github.com/krishimitra/advisor/internal/support"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	level, _ := cfg.SlogLevel()
	logger, closeLog := config.SetupLogger(cfg.LogFile, level)
	slog.SetDefault(logger)
	defer func() { _ = closeLog() }()

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		_ = closeLog()
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	slog.Info("Starting server", "port", cfg.Port, "grpc_port", cfg.GRPCPort, "dev", cfg.IsDevelopment())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(ctx); err != nil {
		return err
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	chats, err := chat.NewManager(intent.NewAdvisor(), responder.AdvisorPool, chat.Options{
		ThinkDelay:  cfg.Chat.ThinkDelay,
		ThinkJitter: cfg.Chat.ThinkJitter,
	})
	if err != nil {
		return err
	}
	defer chats.CloseAll()
	chats.StartSweeper(ctx, cfg.Chat.SessionTTL, cfg.Chat.SweepInterval)

	limiter, closeLimiter := newLimiter(ctx, cfg.RateLimit)
	defer closeLimiter()

	conversationLogger, err := chatlog.NewConversationLogger(chatlog.ConversationLogConfig{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := conversationLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	// Initialize handlers.
	conns := api.NewConnRegistry()
	defer conns.CloseAll()
	baseHandler := api.NewHandler(api.Deps{
		Repo:            repo,
		Chats:           chats,
		Support:         support.NewService(repo),
		Limiter:         limiter,
		ConversationLog: conversationLogger,
	}, conns)
	healthHandler := api.NewHealthHandler(repo, chats, conns)
	wsHandler := api.NewWebSocketHandler(baseHandler, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins(), identity.SessionHeaderName))

	// Public routes.
	healthHandler.RegisterHealth(r)

	// Everything else carries an anonymous identity.
	r.Group(func(r chi.Router) {
		r.Use(identity.Middleware(repo, cfg.IsDevelopment(), local.ParseLanguage(cfg.Chat.DefaultLanguage)))
		baseHandler.RegisterRoutes(r)
		r.Get("/ws/chat", wsHandler.ServeHTTP)
	})

	// WebSocket connections need long-lived writes, so no WriteTimeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return err
	}
	grpcSrv := health.NewServer(repo)

	serveErr := make(chan error, 2)
	var servers conc.WaitGroup
	servers.Go(func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	})
	servers.Go(func() {
		if err := grpcSrv.Serve(grpcLis); err != nil {
			serveErr <- err
		}
	})
	servers.Go(func() { grpcSrv.Watch(ctx, 15*time.Second) })

	// Wait for shutdown signal or a server failure.
	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	conns.CloseAll()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	grpcSrv.Stop()
	servers.Wait()

	return runErr
}

// newLimiter returns a Redis limiter when REDIS_ADDR is set and the
// server answers, else an in-process one.
func newLimiter(ctx context.Context, cfg config.RateLimitConfig) (ratelimit.Limiter, func()) {
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		err := rdb.Ping(pingCtx).Err()
		if err == nil {
			slog.Info("Rate limiting via Redis", "addr", cfg.RedisAddr, "requests", cfg.Requests, "window", cfg.Window)
			return ratelimit.NewRedis(rdb, cfg.RedisPrefix, cfg.Requests, cfg.Window), func() { _ = rdb.Close() }
		}
		slog.Warn("Redis unavailable, falling back to in-process rate limiting", "addr", cfg.RedisAddr, "error", err)
		_ = rdb.Close()
	}
	slog.Info("Rate limiting in process", "requests", cfg.Requests, "window", cfg.Window)
	return ratelimit.NewMemory(ctx, cfg.Requests, cfg.Window), func() {}
}
