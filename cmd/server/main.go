package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chat-relay/internal"
	"chat-relay/relay"
	"chat-relay/repositories"
	"chat-relay/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

// Exit codes to provide meaningful status to the operating system or
// service manager.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper. Its only responsibility
	// is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (database close included)
// executes before the process exits.
func run() (int, error) {
	_ = godotenv.Load()

	portFlag := flag.Int("port", 0, "listen port (overrides PORT)")
	flag.Parse()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	if *portFlag != 0 {
		config.Port = *portFlag
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	authService := services.NewAuthService(repositories.NewCredentialRepository(db))

	server := relay.NewServer(authService, relay.Options{
		Host:               config.Host,
		Port:               config.Port,
		BindAttempts:       config.BindAttempts,
		EmptyLineTolerance: config.EmptyLineTolerance,
	}, logger)

	if err := server.Listen(); err != nil {
		return exitRuntime, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve()
	}()

	select {
	case <-ctx.Done():
		logger.Info("Closing server. Next time!")
		server.Shutdown("Server has shutdown. Disconnected.")
		<-serveErr
		return exitOK, nil
	case err := <-serveErr:
		return exitRuntime, fmt.Errorf("accept loop failed: %w", err)
	}
}
