package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort   int
	Env          string
	JWTSecret    string
	CORSOrigin   string
	RateLimitMax int
	Database     DatabaseConfig
	Upload       UploadConfig
	Storage      StorageConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

// UploadConfig bounds what image uploads are accepted.
type UploadConfig struct {
	// MaxFileSize is the per-file ceiling in bytes.
	MaxFileSize int64
	// AllowedTypes is the lowercase extension allow-list, without dots.
	AllowedTypes []string
}

// StorageConfig selects and configures the object-storage backend.
// Backend is one of "local", "minio", or "gcs".
type StorageConfig struct {
	Backend string
	Local   LocalConfig
	Minio   MinioConfig
	GCS     GCSConfig
}

type LocalConfig struct {
	UploadsDir    string
	ThumbnailsDir string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "prompthub"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "prompthub_db"),
		UseSSL:   getEnvBool("DB_SSL", false),
	}

	uploadConfig := UploadConfig{
		MaxFileSize:  getEnvInt64("MAX_FILE_SIZE", 10<<20),
		AllowedTypes: splitList(getEnv("ALLOWED_IMAGE_TYPES", "jpg,jpeg,png,webp,gif")),
	}

	storageConfig := StorageConfig{
		Backend: getEnv("STORAGE_BACKEND", "local"),
		Local: LocalConfig{
			UploadsDir:    getEnv("UPLOADS_PATH", "./uploads"),
			ThumbnailsDir: getEnv("THUMBNAILS_PATH", "./thumbnails"),
		},
		Minio: MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "prompthub"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		GCS: GCSConfig{
			Bucket:          getEnv("GCS_BUCKET", ""),
			ProjectID:       getEnv("GCS_PROJECT_ID", ""),
			CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
	}

	return Config{
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		Env:          getEnv("ENV", "production"),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		CORSOrigin:   getEnv("CORS_ORIGIN", "*"),
		RateLimitMax: getEnvInt("RATE_LIMIT_MAX", 100),
		Database:     dbConfig,
		Upload:       uploadConfig,
		Storage:      storageConfig,
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int64
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err == nil {
			return value
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		switch strings.ToLower(strings.TrimSpace(valueStr)) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.ToLower(strings.TrimSpace(part))
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}
