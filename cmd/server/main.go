package main

import (
	"chatroomd/domain"
	"chatroomd/infrastructure/ws"
	"chatroomd/internal"
	"chatroomd/repositories"
	"chatroomd/runtime"
	"chatroomd/runtime/workers"
	"chatroomd/services"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
)

// Exit codes to provide meaningful status to the operating system or
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// main is a thin wrapper: call run() and translate its outcome
	// into an OS exit code, letting every defer fire first.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := internal.LoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core wiring: store -> directory -> registry -> service
	repository := repositories.NewRoomRepository(db, logger)
	directory := runtime.NewRoomDirectory(repository, logger)
	registry := runtime.NewSessionRegistry(directory, logger)
	pruneQueue := make(chan domain.SessionID, config.PruneQueueSize)
	chatService := services.NewChatService(logger, directory, registry, pruneQueue, config.DeliveryTimeout)

	// Warm the cache so `list` is instant and ids are verified early.
	summaries, err := directory.ListAll()
	if err != nil {
		return exitRuntime, fmt.Errorf("restoring rooms: %w", err)
	}
	logger.Info("Rooms restored", "count", len(summaries))

	// 4. Shutdown is context cancellation and nothing else.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Background workers under supervision
	sup := workers.NewSupervisor(logger).
		Add(workers.NewPruneWorker(logger, registry, pruneQueue)).
		Add(workers.NewStatsWorker(logger, config.StatsInterval, registry))
	supDone := make(chan struct{})
	go func() {
		defer close(supDone)
		sup.Run(ctx)
	}()

	// 6. Websocket gateway
	gateway := ws.NewGateway(logger, chatService, config.ConnectionBufferSize, config.WriteTimeout, config.MaxContentLength)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: gateway.Routes()}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Listening", "address", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	// 7. Wait for a signal or a crash
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		return exitRuntime, err
	}

	// 8. Graceful shutdown: transport first, then workers
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	<-supDone
	logger.Info("Program stopped cleanly")

	return exitOK, nil
}
