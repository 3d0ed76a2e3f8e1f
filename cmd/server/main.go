package main

import (
	"context"
	"ctchen222/todo-api/internal/api/controller"
	"ctchen222/todo-api/internal/api/models"
	"ctchen222/todo-api/internal/api/service"
	"ctchen222/todo-api/internal/auth"
	"ctchen222/todo-api/internal/config"
	"ctchen222/todo-api/internal/logger"
	"ctchen222/todo-api/internal/mapper"
	"ctchen222/todo-api/internal/server"
	"ctchen222/todo-api/internal/store"
	"ctchen222/todo-api/internal/store/mongostore"
	"ctchen222/todo-api/internal/store/redisstore"
	"ctchen222/todo-api/internal/store/sqlitestore"
	"ctchen222/todo-api/internal/telemetry"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize logging
	logger.Init(cfg.LogLevel)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, cfg.OtelCollector)
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	// Initialize the store
	driver, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize %s store: %v", cfg.StoreDriver, err)
	}
	defer func() {
		if err := driver.Close(ctx); err != nil {
			log.Printf("Error closing store: %v", err)
		}
	}()

	userColl, err := driver.Collection(ctx, service.UserSpec)
	if err != nil {
		log.Fatalf("failed to open users collection: %v", err)
	}
	todoColl, err := driver.Collection(ctx, service.TodoSpec)
	if err != nil {
		log.Fatalf("failed to open todos collection: %v", err)
	}

	// Register mapping profiles
	m := mapper.New()
	models.RegisterProfiles(m)

	// Create auth components
	hasher, err := auth.NewHasher(cfg.HashCost)
	if err != nil {
		log.Fatalf("failed to create hasher: %v", err)
	}
	tokens, err := auth.NewTokenService(cfg.TokenSecret, cfg.TokenExpiry)
	if err != nil {
		log.Fatalf("failed to create token service: %v", err)
	}

	// Create services
	userService := service.NewUserService(userColl, m, hasher, tokens)
	todoService := service.NewTodoService(todoColl, m)

	// Create controllers
	userController := controller.NewUserController(userService)
	todoController := controller.NewTodoController(todoService)

	// Create the Gin-based server
	strategy := auth.NewStrategy(tokens, userService)
	srv := server.NewServer(strategy, userController, todoController)

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-stop:
	case err := <-serveErr:
		slog.Error("http server failed", "error", err)
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exiting")
}

func openStore(ctx context.Context, cfg *config.Config) (store.Driver, error) {
	var (
		driver store.Driver
		err    error
	)
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		driver, err = sqlitestore.Open(ctx, cfg.SQLitePath)
	case config.DriverMongo:
		driver, err = mongostore.Open(ctx, cfg.MongoURL, cfg.MongoDatabase)
	case config.DriverRedis:
		driver, err = redisstore.Open(ctx, cfg.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}
	return driver, nil
}
