package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kengoodridge/ai-chatbot/internal/app"
	"github.com/kengoodridge/ai-chatbot/internal/config"
	"github.com/kengoodridge/ai-chatbot/internal/database"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Fatal("failed to load config", zap.String("path", *configPath), zap.Error(err))
	}

	logger := newLogger(cfg)
	defer logger.Sync()

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal("database connection failed", zap.Error(err))
	}

	application, err := app.New(logger, cfg, db)
	if err != nil {
		logger.Fatal("initialize app failed", zap.Error(err))
	}

	// Hydrate the registry up front so the first dispatched request does not
	// pay for the full store scan. Dispatch re-runs this lazily either way.
	warmCtx, cancelWarm := context.WithTimeout(context.Background(), 30*time.Second)
	if err := application.Registry().EnsureInitialized(warmCtx); err != nil {
		logger.Warn("registry warm-up failed, will retry on first request", zap.Error(err))
	}
	cancelWarm()

	srv := &http.Server{
		Addr:    application.Addr(),
		Handler: application.Router(),
	}

	serveErrCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErrCh:
		if err != nil {
			logger.Fatal("server exited with error", zap.Error(err))
		}
	case <-quit:
		logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Fatal("forced shutdown", zap.Error(err))
		}
		<-serveErrCh
		logger.Info("server exited")
	}
}

func newLogger(cfg *config.AppConfig) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDev() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	return logger
}
