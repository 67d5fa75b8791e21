package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPAddr        = ":8080"
	defaultMigrationsPath  = "migrations/catalog"
	defaultShutdownTimeout = 10 * time.Second

	defaultDBMaxOpenConns    = 25
	defaultDBMaxIdleConns    = 5
	defaultDBConnMaxLifetime = 5 * time.Minute
	defaultDBPingTimeout     = 5 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second

	defaultStorageBucket   = "catalog-uploads"
	defaultUploadURLExpiry = 15 * time.Minute
)

type Storage struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type Catalog struct {
	DatabaseURL       string
	HTTPAddr          string
	MigrationsPath    string
	Storage           Storage
	UploadURLExpiry   time.Duration
	Users             map[string]string
	ShutdownTimeout   time.Duration
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBPingTimeout     time.Duration
	ReadHeaderTimeout time.Duration
}

func LoadCatalog() (Catalog, error) {
	cfg := Catalog{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HTTPAddr:          getEnv("HTTP_ADDR", defaultHTTPAddr),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", defaultMigrationsPath),
		UploadURLExpiry:   getDurationEnv("UPLOAD_URL_EXPIRY", defaultUploadURLExpiry),
		ShutdownTimeout:   defaultShutdownTimeout,
		DBMaxOpenConns:    defaultDBMaxOpenConns,
		DBMaxIdleConns:    defaultDBMaxIdleConns,
		DBConnMaxLifetime: defaultDBConnMaxLifetime,
		DBPingTimeout:     defaultDBPingTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	if cfg.DatabaseURL == "" {
		return Catalog{}, fmt.Errorf("DATABASE_URL is required")
	}

	storage, err := loadStorage()
	if err != nil {
		return Catalog{}, err
	}
	cfg.Storage = storage

	users, err := parseUsers(getEnv("AUTH_USERS", ""))
	if err != nil {
		return Catalog{}, err
	}
	cfg.Users = users

	return cfg, nil
}

func loadStorage() (Storage, error) {
	storage := Storage{
		Endpoint:  getEnv("STORAGE_ENDPOINT", ""),
		AccessKey: getEnv("STORAGE_ACCESS_KEY", ""),
		SecretKey: getEnv("STORAGE_SECRET_KEY", ""),
		Bucket:    getEnv("STORAGE_BUCKET", defaultStorageBucket),
		UseSSL:    getBoolEnv("STORAGE_USE_SSL", false),
	}

	if storage.Endpoint == "" {
		return Storage{}, fmt.Errorf("STORAGE_ENDPOINT is required")
	}
	if storage.AccessKey == "" {
		return Storage{}, fmt.Errorf("STORAGE_ACCESS_KEY is required")
	}
	if storage.SecretKey == "" {
		return Storage{}, fmt.Errorf("STORAGE_SECRET_KEY is required")
	}

	return storage, nil
}

// parseUsers parses "user:secret,user2:secret2" into a credential map.
func parseUsers(raw string) (map[string]string, error) {
	if raw == "" {
		return nil, fmt.Errorf("AUTH_USERS is required")
	}

	users := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		username, secret, ok := strings.Cut(pair, ":")
		if !ok || username == "" || secret == "" {
			return nil, fmt.Errorf("AUTH_USERS entry %q is not user:secret", pair)
		}
		users[username] = secret
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("AUTH_USERS is required")
	}

	return users, nil
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 1 {
		return fallback
	}
	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
