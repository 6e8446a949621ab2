package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tomlord1122/space-todo/internal/logger"
	"github.com/Tomlord1122/space-todo/internal/server"
	"github.com/Tomlord1122/space-todo/internal/web"
	"github.com/Tomlord1122/space-todo/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}

	if cfg.AutoMigrate {
		logger.Info(ctx, "Running database auto-migration...")
		if err := a.db.Migrate(ctx); err != nil {
			a.Close(ctx)
			return fmt.Errorf("auto-migrate: %w", err)
		}
		logger.Info(ctx, "Database auto-migration complete.")
	}

	svc := a.services()
	pages := web.NewHandler(web.Services{
		Spaces: svc.spaces,
		Tasks:  svc.tasks,
		Todos:  svc.todos,
		Users:  svc.users,
	}, web.Options{SessionTTL: cfg.SessionTTL.Duration})

	apiServer := server.NewServer(cfg, server.Deps{
		DB:     a.db,
		Spaces: svc.spaces,
		Tasks:  svc.tasks,
		Todos:  svc.todos,
		Web:    pages,
	})

	workerCtx, stopWorker := context.WithCancel(context.WithoutCancel(ctx))
	workerDone := make(chan struct{})
	if len(cfg.Kafka.Brokers) > 0 {
		reader := worker.NewReader(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID)
		go func() {
			defer close(workerDone)
			worker.Run(workerCtx, reader, a.cache)
		}()
	} else {
		close(workerDone)
	}

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, pages, a, func() {
		stopWorker()
		<-workerDone
	}, done)

	logger.Info(ctx, "Starting server", "addr", apiServer.Addr)
	if err := listen(apiServer, func() {
		stopWorker()
		<-workerDone
		a.Close(ctx)
	}); err != nil {
		return err
	}

	<-done
	logger.Info(ctx, "Graceful shutdown complete.")
	return nil
}

// listen serves until the server is shut down. When it cannot serve at all,
// cleanup releases what was started for it.
func listen(srv *http.Server, cleanup func()) error {
	err := srv.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		cleanup()
		return fmt.Errorf("HTTP server ListenAndServe error: %w", err)
	}
	return nil
}

func gracefulShutdown(apiServer *http.Server, pages *web.Handler, a *app, stopWorker func(), done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info(context.Background(), "Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		logger.Error(ctxTimeout, "Server forced to shutdown", "error", err)
	}

	// Mutations started by the list page outlive their requests.
	waitCtx, cancelWait := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelWait()
	if err := pages.Wait(waitCtx); err != nil {
		logger.Warn(waitCtx, "Abandoned in-flight page mutations", "error", err)
	}

	stopWorker()
	a.Close(context.Background())

	logger.Info(context.Background(), "Server exiting")

	done <- true
}
