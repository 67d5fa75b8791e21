package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-service/internal/catalog"
	"catalog-service/internal/catalog/repository"
	"catalog-service/internal/catalog/service"
	"catalog-service/internal/config"
	"catalog-service/internal/importer"
	"catalog-service/internal/messaging"
	"catalog-service/internal/storage"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	metricImportedTotal      = "products_imported_total"
	metricRowsExtractedTotal = "import_rows_extracted_total"
	metricNotificationsTotal = "notifications_published_total"
	postgresDriverName       = "postgres"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	cfg, err := config.LoadImporter()
	if err != nil {
		logger.Error("load config", "error", err)
		return 1
	}

	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		logger.Error("open database", "error", err)
		return 1
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer pingCancel()
	if err := db.PingContext(pingCtx); err != nil {
		logger.Error("ping database", "error", err)
		return 1
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("connect rabbitmq", "error", err)
		return 1
	}
	defer conn.Close()

	uploads, err := storage.NewUploads(storage.Config{
		Endpoint:  cfg.Storage.Endpoint,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Bucket:    cfg.Storage.Bucket,
		UseSSL:    cfg.Storage.UseSSL,
	}, 0, logger)
	if err != nil {
		logger.Error("init storage", "error", err)
		return 1
	}

	rowPublisher, err := messaging.NewQueuePublisher(conn, catalog.ImportQueue)
	if err != nil {
		logger.Error("init row publisher", "error", err)
		return 1
	}
	defer rowPublisher.Close()

	var notifyPublisher importer.NotificationPublisher
	if cfg.NotificationsExchange != "" {
		broadcast, err := messaging.NewBroadcastPublisher(conn, cfg.NotificationsExchange)
		if err != nil {
			logger.Error("init notification publisher", "error", err)
			return 1
		}
		defer broadcast.Close()
		notifyPublisher = broadcast
	} else {
		logger.Info("notifications exchange not configured, notifier disabled")
	}

	importedCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricImportedTotal,
		Help: "Total number of products created through bulk import",
	})
	rowsCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricRowsExtractedTotal,
		Help: "Total number of CSV rows queued for import",
	})
	notificationsCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricNotificationsTotal,
		Help: "Total number of batch notifications published",
	})
	prometheus.MustRegister(importedCounter, rowsCounter, notificationsCounter)

	repo := repository.NewPostgres(db)
	writer := service.New(repo, logger, importedCounter)
	notifier := importer.NewBroadcastNotifier(notifyPublisher, logger, notificationsCounter)
	extractor := importer.NewExtractor(uploads, rowPublisher, logger, rowsCounter)

	consumer, err := importer.NewConsumer(conn, catalog.ImportQueue, cfg.ImportBatchSize, writer, notifier, logger)
	if err != nil {
		logger.Error("init consumer", "error", err)
		return 1
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metricsServer := &http.Server{Addr: cfg.MetricsAddr, Handler: promhttp.Handler()}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	go extractor.Run(ctx, uploads.ObjectCreated(ctx, catalog.UploadPrefix, catalog.UploadExtension))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("importer started", "queue", catalog.ImportQueue, "batch_size", cfg.ImportBatchSize)
		errCh <- consumer.Listen(ctx)
	}()

	waitForDrain := false
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		waitForDrain = true
	case err := <-errCh:
		if err != nil {
			logger.Error("consumer failed", "error", err)
			return 1
		}
	}

	if waitForDrain {
		shutdownDeadline := time.NewTimer(cfg.ShutdownTimeout)
		defer shutdownDeadline.Stop()
		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("consumer stop failed", "error", err)
				return 1
			}
		case <-shutdownDeadline.C:
			logger.Warn("consumer shutdown timeout reached")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("importer stopped")
	return 0
}
