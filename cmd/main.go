package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"dmcore/controller"
	"dmcore/domain"
	"dmcore/moderation"
	"dmcore/repositories"
	"dmcore/runtime"
	"dmcore/runtime/workers"
	"dmcore/search"
	"dmcore/services"
	"dmcore/transport"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the HTTP server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load() // local development only, the file is absent in production
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Optional full-text index
	var index *search.Index
	if config.BlugeFilepath != "" {
		index, err = search.OpenIndex(config.BlugeFilepath, log)
		if err != nil {
			return fmt.Errorf("index opening failed: %w", err)
		}
		defer func() {
			log.Info("Closing message index...")
			_ = index.Close()
		}()
	}

	// 4. Optional moderation
	var moderator *moderation.Moderator
	if config.CensoredWords != "" {
		words := strings.Split(config.CensoredWords, ",")
		mod, err := moderation.NewModerator(words, []rune(config.CensoredCharacter)[0], log)
		if err != nil {
			return fmt.Errorf("moderator setup failed: %w", err)
		}
		moderator = &mod
	}

	// 5. Supervision & the message exchange
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(workers.NewHealthMonitoring(log, config.MetricInterval))
	registry := runtime.NewRegistry()
	messageRepository := repositories.NewMessageRepository(db, log, config.MaxMessageLength, config.LimitMessages)
	userRepository := repositories.NewUserRepository(db)
	exchange := runtime.NewExchange(log, sup, registry, messageRepository, moderator, index, config.BufferSize)

	// 6. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exchange.Start(ctx)

	// 7. HTTP & WebSocket surface
	authService := services.NewAuthService(userRepository, config.TokenDuration)
	dmService := services.NewDMService(exchange, messageRepository, userRepository)
	factory := func(viewer domain.Participant, onUpdate controller.Notify, onError controller.NotifyError) *controller.Controller {
		return controller.NewController(log, viewer, exchange, onUpdate, onError)
	}
	handler := transport.NewHandler(log, authService, dmService, index,
		strings.Split(config.AllowedOrigins, ","), factory)

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: handler.Router()}

	// Use an error channel to capture ListenAndServe() issues
	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server shutdown", "error", err)
	}
	exchange.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
