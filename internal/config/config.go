package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates runtime configuration for the file-vault API.
type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Vault    VaultConfig
	Metrics  MetricsConfig
}

// ServerConfig parameterizes the HTTP server.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Address returns the listen address in host:port form.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PostgresConfig contains PostgreSQL connection details.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN returns the PostgreSQL DSN string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode)
}

// MinIOConfig carries MinIO connection and bucket information.
type MinIOConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	UseSSL          bool
	Region          string
}

// AuthConfig groups authentication-related settings.
type AuthConfig struct {
	TokenSecret string
	TokenTTL    time.Duration
	BcryptCost  int
}

// VaultConfig selects the metadata and object backends and sets the quota.
type VaultConfig struct {
	// StoreBackend is "postgres" or "memory".
	StoreBackend string
	// ObjectBackend is "minio" or "local".
	ObjectBackend string
	// LocalDir is the base directory of the local object backend.
	LocalDir string
	// QuotaBytes is the per-user storage ceiling reported by the stats
	// endpoint.
	QuotaBytes int64
}

// MetricsConfig groups observability settings.
type MetricsConfig struct {
	PrometheusPath string
}

const defaultQuotaBytes = 10 * 1024 * 1024 * 1024 // 10GB

// Load reads configuration values from environment variables, applying defaults.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Host:         getString("FILEVAULT_API_HOST", "0.0.0.0"),
			Port:         getInt("FILEVAULT_API_PORT", 8080),
			ReadTimeout:  getDuration("FILEVAULT_API_READ_TIMEOUT", 15*time.Second),
			WriteTimeout: getDuration("FILEVAULT_API_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:  getDuration("FILEVAULT_API_IDLE_TIMEOUT", 60*time.Second),
		},
		Postgres: PostgresConfig{
			Host:     getString("POSTGRES_HOST", "localhost"),
			Port:     getInt("POSTGRES_PORT", 5432),
			User:     getString("POSTGRES_USER", "filevault_app"),
			Password: getString("POSTGRES_PASSWORD", "change-me"),
			Database: getString("POSTGRES_DB", "filevault"),
			SSLMode:  strings.ToLower(getString("POSTGRES_SSL_MODE", "disable")),
		},
		MinIO: MinIOConfig{
			Endpoint:        getString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getString("MINIO_ROOT_USER", "filevault"),
			SecretAccessKey: getString("MINIO_ROOT_PASSWORD", "change-me-strong-password"),
			Bucket:          getString("MINIO_BUCKET", "filevault"),
			UseSSL:          getBool("MINIO_USE_SSL", false),
			Region:          getString("MINIO_REGION", ""),
		},
		Auth: loadAuthConfig(),
		Vault: VaultConfig{
			StoreBackend:  strings.ToLower(getString("FILEVAULT_STORE", "postgres")),
			ObjectBackend: strings.ToLower(getString("FILEVAULT_OBJECT_STORE", "minio")),
			LocalDir:      getString("FILEVAULT_LOCAL_DIR", "./data/objects"),
			QuotaBytes:    getInt64("FILEVAULT_QUOTA_BYTES", defaultQuotaBytes),
		},
		Metrics: MetricsConfig{
			PrometheusPath: getString("FILEVAULT_METRICS_PATH", "/metrics"),
		},
	}

	switch cfg.Vault.StoreBackend {
	case "postgres", "memory":
	default:
		return Config{}, fmt.Errorf("unknown store backend %q", cfg.Vault.StoreBackend)
	}
	switch cfg.Vault.ObjectBackend {
	case "minio", "local":
	default:
		return Config{}, fmt.Errorf("unknown object backend %q", cfg.Vault.ObjectBackend)
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.ToLower(strings.TrimSpace(val))
		switch val {
		case "1", "true", "t", "yes", "y":
			return true
		case "0", "false", "f", "no", "n":
			return false
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func loadAuthConfig() AuthConfig {
	cost := getInt("FILEVAULT_AUTH_BCRYPT_COST", 12)
	if cost < 4 || cost > 31 {
		cost = 12
	}

	return AuthConfig{
		TokenSecret: getString("FILEVAULT_JWT_SECRET", "change-me-to-a-32-byte-secret"),
		TokenTTL:    getDuration("FILEVAULT_AUTH_TOKEN_TTL", 12*time.Hour),
		BcryptCost:  cost,
	}
}
