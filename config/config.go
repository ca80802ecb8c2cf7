package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Uploads  UploadConfig
	Auth     AuthConfig
	App      AppConfig
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	DSN      string
	MaxConns int
	MinConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// StorageConfig points at an S3-compatible bucket. Endpoint is set when the
// bucket lives on R2 or another non-AWS provider.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	URLTTLMinutes   int
}

type UploadConfig struct {
	AcceptedExtensions []string
	MaxFileSizeMB      int64
	MaxFilesPerType    int
}

type AuthConfig struct {
	FirebaseCredentialsFile string
}

type AppConfig struct {
	Environment           string
	Version               string
	AutoCompleteAfterDays int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:5173"}),
		},
		Database: DatabaseConfig{
			DSN:      getEnv("DB_DSN", ""),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 2),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Storage: StorageConfig{
			Bucket:          getEnv("STORAGE_BUCKET", "remote-projects"),
			Region:          getEnv("STORAGE_REGION", "auto"),
			Endpoint:        getEnv("STORAGE_ENDPOINT", ""),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("STORAGE_SECRET_ACCESS_KEY", ""),
			URLTTLMinutes:   getEnvAsInt("STORAGE_URL_TTL_MINUTES", 15),
		},
		Uploads: UploadConfig{
			AcceptedExtensions: getEnvAsList("UPLOAD_ACCEPTED_EXTENSIONS", []string{".wav", ".aif", ".aiff", ".mp3", ".flac", ".zip"}),
			MaxFileSizeMB:      int64(getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 500)),
			MaxFilesPerType:    getEnvAsInt("UPLOAD_MAX_FILES_PER_TYPE", 50),
		},
		Auth: AuthConfig{
			FirebaseCredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		App: AppConfig{
			Environment:           getEnv("APP_ENV", "development"),
			Version:               getEnv("APP_VERSION", "1.0.0"),
			AutoCompleteAfterDays: getEnvAsInt("AUTO_COMPLETE_AFTER_DAYS", 7),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}

	if c.Uploads.MaxFileSizeMB <= 0 {
		return fmt.Errorf("UPLOAD_MAX_FILE_SIZE_MB must be positive")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
