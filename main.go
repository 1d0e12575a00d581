package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"investor_onboarding/internal/config"
	"investor_onboarding/internal/httpapi"
	"investor_onboarding/internal/logger"
	"investor_onboarding/internal/messaging"
	"investor_onboarding/internal/metrics"
	"investor_onboarding/internal/model"
	"investor_onboarding/internal/ratelimit"
	"investor_onboarding/internal/repository"
	"investor_onboarding/internal/service"
)

func runMigrations(db *pgxpool.Pool, migrationsDir string, log *zap.Logger) error {
	log.Info("Running database migrations")

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var migrationFiles []string
	for _, file := range files {
		if strings.HasSuffix(file.Name(), ".sql") {
			migrationFiles = append(migrationFiles, file.Name())
		}
	}

	sort.Strings(migrationFiles)

	for _, filename := range migrationFiles {
		log.Info("Running migration", zap.String("file", filename))

		content, err := os.ReadFile(filepath.Join(migrationsDir, filename))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", filename, err)
		}

		if _, err := db.Exec(context.Background(), string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", filename, err)
		}
	}

	log.Info("All migrations completed successfully")
	return nil
}

// openSheets returns the sheet backend and a cleanup func
func openSheets(ctx context.Context, cfg *config.Config, log *zap.Logger) (repository.SheetStore, func(), error) {
	if cfg.Database.Driver == "sqlite" {
		db, err := repository.OpenSQLite(cfg.Database.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		sheets, err := repository.NewSQLiteSheetStore(ctx, db, log)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		log.Info("Using sqlite sheet store", zap.String("path", cfg.Database.SQLitePath))
		return sheets, func() { db.Close() }, nil
	}

	db, err := pgxpool.New(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	log.Info("Connected to database")

	if err := runMigrations(db, cfg.Database.Migrations, log); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewPostgresSheetStore(db, log), db.Close, nil
}

func newLimiter(cfg *config.Config, log *zap.Logger) ratelimit.Limiter {
	if cfg.RateLimit.Driver == "redis" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		log.Info("Using redis rate limiter", zap.String("addr", cfg.Redis.Addr))
		return ratelimit.NewRedisLimiter(client, cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, log)
	}
	return ratelimit.NewMemoryLimiter(cfg.RateLimit.MaxRequests, cfg.RateLimit.CacheSize, cfg.RateLimit.Window)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	var logOpts []logger.Option
	if cfg.Log.File != "" {
		logOpts = append(logOpts, logger.WithFile(cfg.Log.File))
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.JSON, logOpts...)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting investor onboarding ingestion server")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sheets, closeSheets, err := openSheets(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to open sheet store", zap.Error(err))
	}
	defer closeSheets()

	audit := repository.NewAuditLog(sheets, cfg.Sheets.Logs, log)
	records := repository.NewRecordStore(sheets, cfg.Sheets.Records, log)
	documents := repository.NewFolderDocumentStore(afero.NewOsFs(), repository.DocumentStoreConfig{
		Root:          cfg.Documents.Root,
		Folder:        cfg.Documents.Folder,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		MinBytes:      cfg.Documents.MinBytes,
		MaxBytes:      cfg.Documents.MaxBytes,
	}, audit, log)

	var (
		events     messaging.Publisher
		natsClient messaging.NATSClient
	)
	switch cfg.Events.Driver {
	case "nats":
		natsClient, err = messaging.NewNATSClient(cfg.NATS.URL, log)
		if err != nil {
			log.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		events = natsClient
		log.Info("Connected to NATS")
	case "kafka":
		events = messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
	default:
		events = messaging.NewNoopPublisher(log)
	}
	defer events.Close()

	m := metrics.New()
	ingestion := service.NewIngestionService(service.Config{
		AllowedOrigins: cfg.Ingest.AllowedOrigins,
		EnforceOrigin:  cfg.Ingest.EnforceOrigin,
		SecretToken:    cfg.Ingest.SecretToken,
		LockTimeout:    cfg.Ingest.LockTimeout,
		StageTimeout:   cfg.Ingest.StageTimeout,
		MinInvestment:  cfg.Ingest.MinInvestment,
		StrictFormat:   cfg.Ingest.StrictFormat,
	}, service.Deps{
		Limiter:   newLimiter(cfg, log),
		Records:   records,
		Documents: documents,
		Audit:     audit,
		Events:    events,
		Metrics:   m,
	}, log)

	// Подписываемся на подтверждения доставки уведомлений
	if natsClient != nil {
		err = natsClient.SubscribeToNotificationDelivered(ctx, func(delivered *model.NotificationDelivered) {
			ingestion.HandleNotificationDelivered(context.Background(), delivered)
		})
		if err != nil {
			log.Error("Failed to subscribe to notification delivered", zap.Error(err))
		}
	}

	proxies, err := httpapi.ParseTrustedProxies(cfg.Server.TrustedProxies)
	if err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}
	handler := httpapi.NewHandler(httpapi.Config{
		MaxRequestBytes: cfg.Server.MaxRequestBytes,
		TrustedProxies:  proxies,
	}, ingestion, documents, m.Handler(), log)
	server := &http.Server{
		Addr:    cfg.ServerAddr(),
		Handler: handler.Routes(),
	}

	log.Info("Starting server", zap.String("address", server.Addr))
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	// Graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}
