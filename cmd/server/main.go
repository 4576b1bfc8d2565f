package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirasaad/finboard/infra/initializer"
	"github.com/amirasaad/finboard/pkg/app"
	"github.com/amirasaad/finboard/pkg/config"
	"github.com/amirasaad/finboard/webapi"
	log "github.com/charmbracelet/log"
)

const shutdownTimeout = 10 * time.Second

// @title Finboard API
// @version 1.0.0
// @description Personal finance dashboard API: balances, transactions and settings
// @host localhost:3000
// @BasePath /
//
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
// @description "Enter your Bearer token in the format: `Bearer {token}`"
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context) error {
	// Load configuration
	cfg, err := config.Load(".env")
	if err != nil {
		return fmt.Errorf("failed to load application configuration: %w", err)
	}

	// Initialize all dependencies
	deps, err := initializer.InitializeDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			slog.Error("Closing dependencies failed", "error", err)
		}
	}()
	logger := deps.Logger

	a, err := app.New(ctx, deps.Deps, cfg)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}
	defer a.Close()

	fiberApp := webapi.SetupApp(a, deps.Metrics)

	addr := cfg.Server.Addr()
	logger.Info("Starting server",
		"env", cfg.Env,
		"address", addr,
		"base_url", cfg.Server.BaseURL(),
	)

	errCh := make(chan error, 1)
	go func() { errCh <- fiberApp.Listen(addr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fiberApp.ShutdownWithContext(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
