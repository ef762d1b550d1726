package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"resurface-backend/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	app, err := BuildApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := hydrate(ctx, app); err != nil {
		return err
	}

	// Hot reload in development: timing constraints apply on next schedule.
	if cfg.Environment == config.Development && configPath != "" {
		watcher, err := config.NewWatcher(configPath, cfg, app.Logger)
		if err != nil {
			app.Logger.Warn("config hot reload unavailable", zap.Error(err))
		} else {
			defer watcher.Stop()
			watcher.OnReload(func(next *config.Config) {
				app.Logger.Info("configuration change detected, restart to apply server settings")
			})
		}
	}

	app.Orchestrator.Start(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      app.Router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		app.Logger.Info("server listening",
			zap.String("addr", addr),
			zap.String("environment", string(cfg.Environment)),
			zap.Strings("config_sources", cfg.LoadedFrom),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.Logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	app.Logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Flush queued relationship work before the listener closes.
	app.Orchestrator.FlushPending(shutdownCtx)
	if _, err := app.Service.ExportData(shutdownCtx); err != nil {
		app.Logger.Warn("failed to persist learned state on shutdown", zap.Error(err))
	}

	return httpServer.Shutdown(shutdownCtx)
}

// hydrate restores the relationship graph and learned state from
// persistence at startup.
func hydrate(ctx context.Context, app *App) error {
	if err := app.HydrateGraph(ctx); err != nil {
		return fmt.Errorf("hydrate relationship graph: %w", err)
	}
	if err := app.Service.RestoreLearnedState(ctx); err != nil {
		app.Logger.Warn("failed to restore learned state", zap.Error(err))
	}
	return nil
}
