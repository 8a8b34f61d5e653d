package config

import (
	"os"
	"strconv"
	"strings"
	"time"
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

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret     string
	TokenTTL      time.Duration
	ResetTokenTTL time.Duration
}

// UploadConfig holds the file ingestion policy: size limit, MIME allow-list,
// previewable MIME set, and signed URL expiry.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes []string
	PreviewableTypes []string
	SignedURLExpiry  time.Duration
}

// DefaultAllowedMimeTypes is the upload allow-list: images, office documents,
// text formats, and common archives.
var DefaultAllowedMimeTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp", "image/svg+xml",
	"application/pdf", "application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"text/plain", "text/csv", "application/json", "application/xml",
	"application/zip", "application/x-rar-compressed", "application/x-7z-compressed",
}

// DefaultPreviewableTypes are the MIME types that may be rendered inline:
// raster images and PDF.
var DefaultPreviewableTypes = []string{
	"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp",
	"application/pdf",
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Auth     AuthConfig
	Upload   UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
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
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "company-files"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			TokenTTL:      time.Duration(getEnvInt("AUTH_TOKEN_TTL_HOURS", 24)) * time.Hour,
			ResetTokenTTL: time.Duration(getEnvInt("AUTH_RESET_TOKEN_TTL_MIN", 30)) * time.Minute,
		},
		Upload: UploadConfig{
			MaxFileSize:      int64(getEnvInt("UPLOAD_MAX_FILE_SIZE", 50*1024*1024)),
			AllowedMimeTypes: getEnvList("UPLOAD_ALLOWED_MIME_TYPES", DefaultAllowedMimeTypes),
			PreviewableTypes: getEnvList("UPLOAD_PREVIEWABLE_TYPES", DefaultPreviewableTypes),
			SignedURLExpiry:  time.Duration(getEnvInt("UPLOAD_SIGNED_URL_EXPIRY_SEC", 60)) * time.Second,
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

func getEnvList(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
