// Package main starts the QuoteKeeper notes API server, wiring configuration,
// logging, the PostgreSQL repository, services and HTTP handlers.
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

	"github.com/atinyakov/QuoteKeeper/internal/config"
	"github.com/atinyakov/QuoteKeeper/internal/db"
	"github.com/atinyakov/QuoteKeeper/internal/logger"
	"github.com/atinyakov/QuoteKeeper/internal/repository"
	"github.com/atinyakov/QuoteKeeper/internal/server/handler/http"
	"github.com/atinyakov/QuoteKeeper/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const (
	cleanupInterval  = time.Hour
	deletedRetention = 30 * 24 * time.Hour
	shutdownTimeout  = 10 * time.Second
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartSoftDeleteCleaner(ctx, postgresDB, cleanupInterval, deletedRetention, zapLogger)

	noteRepo := repository.NewPostgresNoteRepository(postgresDB)
	noteService := service.NewNoteService(noteRepo)
	noteHandler := &http.NoteHandler{NoteService: noteService, Log: zapLogger}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           http.NewRouter(noteHandler, zapLogger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTP server", zap.String("addr", options.Port))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
