package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/otiai10/consultbase/internal/api"
	"github.com/otiai10/consultbase/internal/auth"
	"github.com/otiai10/consultbase/internal/config"
	"github.com/otiai10/consultbase/internal/logging"
	"github.com/otiai10/consultbase/internal/metrics"
	"github.com/otiai10/consultbase/internal/session"
	"github.com/otiai10/consultbase/internal/store"
	"github.com/otiai10/consultbase/internal/user"
	"github.com/otiai10/consultbase/internal/version"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API (default when no subcommand is given)",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	// Load .env.localdev file if it exists (for local development)
	// Silently ignore if file doesn't exist (production uses real env vars)
	_ = godotenv.Load(".env.localdev")

	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := logging.Init(logging.Config{
		Format:    cfg.Log.Format,
		Level:     cfg.Log.Level,
		Component: "consultbase",
	})

	clients, err := store.NewRepositoryFromFile(cfg.Clients.FixturesPath)
	if err != nil {
		return fmt.Errorf("failed to load clients: %w", err)
	}
	users := user.NewFileRepository(cfg.Profile.Path)
	sessions := session.NewManager(clients)

	var handler http.Handler = api.NewRouter(api.RouterConfig{
		Sessions:       sessions,
		Auth:           auth.NewService(users, sessions),
		Metrics:        metrics.New(),
		SecurityConfig: cfg.Security,
	})

	if cfg.API.StaticDir != "" {
		static, err := api.NewStaticDirServer(cfg.API.StaticDir)
		if err != nil {
			return fmt.Errorf("failed to open static dir: %w", err)
		}
		handler = api.WithStaticFiles(handler, static)
		logger.Info().Str("dir", cfg.API.StaticDir).Msg("serving dashboard files")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.API.Addr, handler)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start()
	}()

	logger.Info().
		Str("addr", server.Addr()).
		Str("hash", version.CommitHash).
		Str("profile", users.Path()).
		Msg("consultbase API listening")

	select {
	case err := <-errChan:
		if err != nil {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down API server: %w", err)
	}

	logger.Info().Msg("goodbye")
	return nil
}
