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

	"github.com/cuongbtq/booking-core/internal/api/handler"
	"github.com/cuongbtq/booking-core/internal/api/router"
	"github.com/cuongbtq/booking-core/internal/booking/domain"
	"github.com/cuongbtq/booking-core/internal/booking/intake"
	"github.com/cuongbtq/booking-core/internal/booking/lifecycle"
	"github.com/cuongbtq/booking-core/internal/booking/matching"
	"github.com/cuongbtq/booking-core/internal/booking/memstore"
	"github.com/cuongbtq/booking-core/internal/booking/notify"
	"github.com/cuongbtq/booking-core/internal/booking/storage"
	"github.com/cuongbtq/booking-core/internal/booking/timeutil"
	"github.com/cuongbtq/booking-core/internal/booking/transport"
	"github.com/cuongbtq/booking-core/internal/config"
	"github.com/cuongbtq/booking-core/internal/metrics"
	"github.com/cuongbtq/booking-core/shared/logger"
	"github.com/cuongbtq/booking-core/shared/postgresql"
	"github.com/cuongbtq/booking-core/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := initLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()

	appLogger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	users, jobs, dbClient, err := initStorage(ctx, cfg, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	rabbitClient, err := initRabbitMQ(&cfg.RabbitMQ, appLogger.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}

	appLogger.Info("RabbitMQ connection established")

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	var recorder metrics.Recorder = metrics.Nop{}
	if cfg.Metrics.Enabled {
		recorder = metrics.NewCollector(cfg.Metrics.Namespace, registry)
	}

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	publisher := transport.NewPublisher(rabbitClient, appLogger.Component("transport"))
	manager, err := initBooking(&cfg.Booking, loc, users, jobs, publisher, recorder, appLogger)
	if err != nil {
		return fmt.Errorf("failed to initialize booking core: %w", err)
	}

	var routerOpts router.Options
	if cfg.Metrics.Enabled {
		routerOpts = router.Options{Gatherer: registry, MetricsPath: cfg.Metrics.Path}
	}
	r := initRouter(cfg, appLogger.Logger, manager, loc, routerOpts)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	appLogger.Info("Starting HTTP server",
		slog.String("address", addr),
		slog.Duration("read_timeout", cfg.Server.ReadTimeout),
		slog.Duration("write_timeout", cfg.Server.WriteTimeout),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		appLogger.Info("Shutting down server...", slog.String("signal", sig.String()))
	case err := <-errChan:
		appLogger.Error("Server failed", slog.Any("error", err))
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)

	cleanup := func() {
		shutdownCancel()
		if dbClient != nil {
			dbClient.Close()
		}
		if rabbitClient != nil {
			rabbitClient.Close()
		}
	}
	defer cleanup()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	appLogger.Info("Server shutdown complete")
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

// initStorage opens the configured backend; dbClient is nil for the memory driver
func initStorage(ctx context.Context, cfg *config.Config, appLogger *logger.Logger) (domain.UserDirectory, domain.JobStore, *postgresql.Client, error) {
	if cfg.Storage.Driver != config.StoragePostgres {
		appLogger.Warn("Using in-memory storage; bookings are lost on restart")
		store := memstore.New()
		return store, store, nil, nil
	}

	dbClient, err := postgresql.NewClient(&postgresql.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, appLogger.Logger)
	if err != nil {
		return nil, nil, nil, err
	}

	appLogger.Info("Database connection established")

	store := storage.NewStore(dbClient, appLogger.Component("storage"))
	if cfg.Storage.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			dbClient.Close()
			return nil, nil, nil, err
		}
	}
	return store, store, dbClient, nil
}

// initRabbitMQ connects a publish-only client; the queue belongs to the worker
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
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}

	return rabbitmq.NewClient(rabbitConfig, logger)
}

// initBooking wires the matching engine, dispatcher and lifecycle manager
func initBooking(cfg *config.BookingConfig, loc *time.Location, users domain.UserDirectory, jobs domain.JobStore,
	publisher *transport.Publisher, recorder metrics.Recorder, appLogger *logger.Logger) (*lifecycle.Manager, error) {
	hours, err := timeutil.NewBusinessHours(timeutil.BusinessHoursConfig{
		Location:   loc,
		NightStart: cfg.NightStartHour,
		NightEnd:   cfg.NightEndHour,
		ResumeCron: cfg.BusinessHoursCron,
	})
	if err != nil {
		return nil, err
	}

	cat, err := notify.NewCatalog()
	if err != nil {
		return nil, err
	}

	clock := domain.SystemClock{Location: loc}
	engine := matching.NewEngine(users, jobs)
	dispatcher := notify.NewDispatcher(notify.Deps{
		Users:     users,
		Engine:    engine,
		Transport: publisher,
		Hours:     hours,
		Clock:     clock,
		Printers:  notify.NewPrinters(cat),
		Metrics:   recorder,
		Logger:    appLogger.Component("notify"),
	}, notify.Config{
		Concurrency: cfg.NotifyConcurrency,
		SMSSender:   cfg.SMSSender,
		PushTitle:   cfg.PushTitle,
		Languages:   cfg.Languages,
	})

	return lifecycle.NewManager(lifecycle.Deps{
		Users:      users,
		Jobs:       jobs,
		Engine:     engine,
		Dispatcher: dispatcher,
		Builder:    intake.NewBuilder(loc, cfg.ImmediateLeadTime),
		Events:     publisher,
		Clock:      clock,
		Metrics:    recorder,
		Logger:     appLogger.Component("lifecycle"),
	}, lifecycle.Config{
		CancelWindow:    cfg.CancelWindow,
		HistoryPageSize: cfg.HistoryPageSize,
	}), nil
}

// initRouter initializes the Gin router with all routes and middleware
func initRouter(cfg *config.Config, logger *slog.Logger, manager *lifecycle.Manager, loc *time.Location, opts router.Options) *gin.Engine {
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	return router.SetupRouter(&handler.Dependencies{
		Logger:      logger,
		Manager:     manager,
		Location:    loc,
		ServiceName: cfg.App.Name,
	}, opts)
}
