package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuongbtq/marketops-be/internal/config"
	"github.com/cuongbtq/marketops-be/internal/dispatch"
	"github.com/cuongbtq/marketops-be/internal/handler"
	"github.com/cuongbtq/marketops-be/internal/registry"
	"github.com/cuongbtq/marketops-be/internal/relay"
	"github.com/cuongbtq/marketops-be/internal/storage"
	"github.com/cuongbtq/marketops-be/shared/logger"
	"github.com/cuongbtq/marketops-be/shared/postgresql"
	"github.com/cuongbtq/marketops-be/shared/rabbitmq"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	// Parse command-line flags
	defaultConfigPath := os.Getenv("DISPATCHER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/dispatcher-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateDispatcherConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// Initialize logger
	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	appLogger.Info("Starting dispatcher service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
	)

	// Initialize PostgreSQL client
	dbClient, err := initPostgreSQL(&cfg.Database, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	appLogger.Info("Database connection established")

	// Initialize RabbitMQ client
	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	store := storage.NewStorage(dbClient, appLogger.Logger)

	// Wire the correlation relay: per-session requests out over AMQP,
	// responses back on the shared reply queue
	sessionHub := relay.NewSessionHub(appLogger.Logger)

	transport, err := relay.NewAMQPTransport(rabbitClient, cfg.Relay.ReplyQueue, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize relay transport: %w", err)
	}

	callRelay := relay.NewRelay(sessionHub, transport, appLogger.Logger)

	// Create dispatch engine
	engine := dispatch.NewEngine(&dispatch.Config{
		Logger:   appLogger.Logger,
		Store:    store,
		Registry: registry.Default(),
		HandlerDeps: &handler.Deps{
			Remote:      callRelay,
			Tasks:       store,
			HTTPClient:  &http.Client{Timeout: cfg.Relay.CallTimeout},
			Logger:      appLogger.Logger,
			CallTimeout: cfg.Relay.CallTimeout,
			BaseURLs:    cfg.Marketplaces,
		},
		Concurrency:  cfg.Dispatcher.Concurrency,
		PollInterval: cfg.Dispatcher.PollInterval,
		ClaimLimit:   cfg.Dispatcher.ClaimLimit,
		JobTimeout:   cfg.Dispatcher.JobTimeout,
	})

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errChan := make(chan error, 4)

	// Start engine and AMQP consumers
	go func() {
		if err := engine.Start(ctx); err != nil {
			errChan <- fmt.Errorf("dispatch engine: %w", err)
		}
	}()

	go func() {
		if err := engine.ConsumeNudges(ctx, rabbitClient); err != nil {
			errChan <- fmt.Errorf("nudge consumer: %w", err)
		}
	}()

	go func() {
		if err := transport.ConsumeResponses(ctx, callRelay, cfg.App.Name+"-replies"); err != nil {
			errChan <- fmt.Errorf("relay response consumer: %w", err)
		}
	}()

	go func() {
		if err := transport.ConsumePresence(ctx, sessionHub, cfg.App.Name+"-presence"); err != nil {
			errChan <- fmt.Errorf("presence consumer: %w", err)
		}
	}()

	appLogger.Info("Dispatcher service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		appLogger.Error("Dispatcher error",
			slog.Any("error", err),
		)
		return err
	}

	// Cancel context to stop the engine and consumers
	cancel()

	// Give the engine time to finish in-flight jobs
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Dispatcher.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		engine.Stop()
		close(done)
	}()

	select {
	case <-done:
		appLogger.Info("Dispatch engine stopped gracefully")
	case <-shutdownCtx.Done():
		appLogger.Warn("Dispatcher shutdown timeout exceeded, forcing exit")
	}

	// Fail any calls still waiting on remote responses
	callRelay.Shutdown()

	// Cleanup function to close all resources
	cleanup := func() {
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	cleanup()

	appLogger.Info("Dispatcher service shutdown complete")
	return nil
}

// initLogger initializes and configures the application logger
func initLogger(cfg *config.LoggingConfig) (*logger.Logger, error) {
	loggerCfg := &logger.Config{
		Level:        cfg.Level,
		Format:       cfg.Format,
		Output:       cfg.Output,
		EnableSource: cfg.EnableCaller,
		TimeFormat:   time.RFC3339,
	}

	return logger.New(loggerCfg)
}

// initPostgreSQL initializes the PostgreSQL database client
func initPostgreSQL(cfg *config.DatabaseConfig, logger *slog.Logger) (*postgresql.Client, error) {
	dbConfig := &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}

	return postgresql.NewClient(dbConfig, logger)
}

// initRabbitMQ initializes the RabbitMQ client
func initRabbitMQ(cfg *config.RabbitMQConfig, logger *slog.Logger) (*rabbitmq.Client, error) {
	rabbitConfig := &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}
