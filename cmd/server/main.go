// Package main initializes and starts the trellix HTTP server, setting up
// configuration, logging, the database, the board cache, repositories,
// services, handlers and graceful shutdown.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/trellix/internal/cache"
	"github.com/atinyakov/trellix/internal/config"
	"github.com/atinyakov/trellix/internal/db"
	"github.com/atinyakov/trellix/internal/intent"
	"github.com/atinyakov/trellix/internal/logger"
	"github.com/atinyakov/trellix/internal/repository"
	"github.com/atinyakov/trellix/internal/server/handler/http"
	"github.com/atinyakov/trellix/internal/service"
	"github.com/atinyakov/trellix/internal/session"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

// boardCache is what the server needs from a board snapshot cache.
type boardCache interface {
	service.BoardCache
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// Parse YAML, command-line and environment configuration.
	options, err := config.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := options.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	zapLogger := log.Log

	if options.SecretDefaulted {
		zapLogger.Warn("no cookie secret configured, using the development fallback")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the database and create the schema.
	conn, dialect, err := db.Open(ctx, options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer conn.Close()

	// Redis is optional: without it every board read hits the database.
	var boards boardCache = cache.Noop{}
	if options.RedisURL != "" {
		redisBoards, err := cache.NewRedisBoards(options.RedisURL, options.CacheTTL)
		if err != nil {
			zapLogger.Fatal("cannot connect to redis", zap.Error(err))
		}
		boards = redisBoards
	}
	defer boards.Close()

	// Initialize repositories for accounts and boards.
	authRepo := repository.NewAuthRepository(conn, dialect)
	boardRepo := repository.NewBoardRepository(conn, dialect)

	// Initialize business-logic services.
	authService := service.NewAuthService(authRepo)
	boardService := service.NewBoardService(boardRepo, boards, zapLogger)
	dispatcher := intent.NewDispatcher(boardService, zapLogger)

	gate, err := session.NewGate(session.Options{
		Secret: []byte(options.CookieSecret),
		Secure: options.IsProduction(),
		MaxAge: session.DefaultMaxAge,
	})
	if err != nil {
		zapLogger.Fatal("cannot init session gate", zap.Error(err))
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(http.Handlers{
		Auth:   &http.AuthHandler{AuthService: authService, Sessions: gate, Logger: zapLogger},
		Home:   &http.HomeHandler{Boards: boardService, Dispatcher: dispatcher, Logger: zapLogger},
		Board:  &http.BoardHandler{Boards: boardService, Dispatcher: dispatcher, Logger: zapLogger},
		Health: &http.HealthHandler{DB: conn, Cache: http.PingFunc(boards.Ping), Logger: zapLogger},
	}, gate, zapLogger)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		zapLogger.Info("starting HTTP server",
			zap.String("addr", options.Address),
			zap.String("env", string(options.Environment)),
			zap.String("dialect", string(dialect)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
