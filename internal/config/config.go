package config

import (
	"os"
	"strconv"
	"strings"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// StorageConfig selects and configures the document store backend.
// "local" keeps files under UploadFolder/OutputFolder on disk;
// "minio" keeps the same key layout in an S3-compatible bucket.
type StorageConfig struct {
	Backend      string
	UploadFolder string
	OutputFolder string
	MinIO        MinIOConfig
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig holds settings for the optional result cache.
// An empty Addr disables the cache entirely.
type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	ResultTTLSec int
}

// FillConfig holds settings for the fill engine and its worker pool.
type FillConfig struct {
	Workers      int
	QueueSize    int
	PDFPasswords []string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	Port           string
	MaxUploadBytes int64
	Storage        StorageConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Fill           FillConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		Port:           getEnv("PORT", "5000"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 16<<20),
		Storage: StorageConfig{
			Backend:      getEnv("STORAGE_BACKEND", "local"),
			UploadFolder: getEnv("UPLOAD_FOLDER", "Uploads"),
			OutputFolder: getEnv("OUTPUT_FOLDER", "filled_output"),
			MinIO: MinIOConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", ""),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", ""),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
		},
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Redis: RedisConfig{
			Addr:         getEnv("REDIS_ADDR", ""),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getEnvInt("REDIS_DB", 0),
			ResultTTLSec: getEnvInt("REDIS_RESULT_TTL_SEC", 3600),
		},
		Fill: FillConfig{
			Workers:      getEnvInt("FILL_WORKERS", 4),
			QueueSize:    getEnvInt("FILL_QUEUE_SIZE", 64),
			PDFPasswords: getEnvList("PDF_PASSWORDS", []string{"ARN100481", "AAHCP7661C", ""}),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.ParseInt(v, 10, 64)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvList splits a comma-separated value. Empty elements are kept so a
// password list can include the blank password.
func getEnvList(key string, def []string) []string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return strings.Split(v, ",")
	}
	return def
}
