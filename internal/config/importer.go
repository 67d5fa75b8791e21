package config

import (
	"fmt"
	"time"
)

const (
	defaultImportBatchSize = 10
	defaultMetricsAddr     = ":9090"
)

type Importer struct {
	DatabaseURL           string
	RabbitMQURL           string
	Storage               Storage
	NotificationsExchange string // empty disables the notifier
	ImportBatchSize       int
	MetricsAddr           string
	ShutdownTimeout       time.Duration
	DBMaxOpenConns        int
	DBMaxIdleConns        int
	DBConnMaxLifetime     time.Duration
	DBPingTimeout         time.Duration
}

func LoadImporter() (Importer, error) {
	cfg := Importer{
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RabbitMQURL:           getEnv("RABBITMQ_URL", ""),
		NotificationsExchange: getEnv("NOTIFICATIONS_EXCHANGE", ""),
		ImportBatchSize:       getIntEnv("IMPORT_BATCH_SIZE", defaultImportBatchSize),
		MetricsAddr:           getEnv("METRICS_ADDR", defaultMetricsAddr),
		ShutdownTimeout:       defaultShutdownTimeout,
		DBMaxOpenConns:        defaultDBMaxOpenConns,
		DBMaxIdleConns:        defaultDBMaxIdleConns,
		DBConnMaxLifetime:     defaultDBConnMaxLifetime,
		DBPingTimeout:         defaultDBPingTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Importer{}, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return Importer{}, fmt.Errorf("RABBITMQ_URL is required")
	}

	storage, err := loadStorage()
	if err != nil {
		return Importer{}, err
	}
	cfg.Storage = storage

	return cfg, nil
}
