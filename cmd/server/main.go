package main

import (
	"context"
	"fmt"
	"log" // Standard log for critical startup/shutdown messages before/after zap is active
	"os"
	"os/signal"
	"syscall"

	"lostfound_backend/internal/app"
	"lostfound_backend/internal/config"
	"lostfound_backend/internal/platform/database"
	"lostfound_backend/internal/platform/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lostfound",
		Short:         "Lost and found backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Running the binary with no subcommand starts the API, as deployments expect.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API and background jobs",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate()
			},
		},
		&cobra.Command{
			Use:   "sync-items",
			Short: "Rebuild the item search index from the database",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runSyncItems(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "reap-messages",
			Short: "Purge messages hidden by both participants",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runReapMessages(cmd.Context())
			},
		},
	)
	return root
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	application, cleanup, err := initializeApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}
	defer cleanup()

	// A missing index only degrades search; the API still serves.
	if application.Indexer.Enabled() {
		if err := application.Indexer.EnsureIndex(ctx); err != nil {
			application.Logger.Error("Failed to prepare item search index", zap.Error(err))
		}
	}

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- application.Server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		log.Printf("INFO: Received signal '%s'. Shutting down server...", sig)
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
	defer cancel()
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		log.Printf("ERROR: Server forced to shutdown due to error: %v", err)
		return err
	}
	log.Println("INFO: Server shutdown complete.")
	return nil
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	appLogger, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = appLogger.Sync() }()

	db, err := database.NewGORM(cfg, appLogger)
	if err != nil {
		return err
	}
	defer database.CloseGORMDB(db, appLogger)
	return database.AutoMigrate(db, appLogger, app.Models()...)
}

func runSyncItems(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	application, cleanup, err := initializeApplication(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	indexed, err := application.Items.SyncIndex(ctx)
	if err != nil {
		return fmt.Errorf("item synchronization failed after %d documents: %w", indexed, err)
	}
	application.Logger.Info("Item synchronization completed", zap.Int("indexed", indexed))
	return nil
}

func runReapMessages(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	application, cleanup, err := initializeApplication(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	deleted, err := application.MessageReapJob.Run(ctx)
	if err != nil {
		return err
	}
	application.Logger.Info("Message reap completed", zap.Int64("deleted", deleted))
	return nil
}
