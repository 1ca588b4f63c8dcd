// Package config loads service settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported OCR_ENGINE values.
const (
	OCRTesseract = "tesseract"
	OCRRemote    = "remote"
	OCRNone      = "none"
)

// Supported STORE values.
const (
	StoreMemory    = "memory"
	StoreFirestore = "firestore"
	StorePostgres  = "postgres"
)

// Supported ARCHIVE values.
const (
	ArchiveNone   = "none"
	ArchiveLocal  = "local"
	ArchiveGCS    = "gcs"
	ArchiveSpaces = "spaces"
)

// Supported AUTH_MODE values.
const (
	AuthLocal    = "local"
	AuthFirebase = "firebase"
)

// Config holds environment-based settings
type Config struct {
	Port string

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	GeminiRPS     float64

	OCREngine     string
	OCRServiceURL string
	OCRLanguages  []string

	Store                 string
	GoogleCloudProject    string
	GoogleCredentialsFile string
	DatabaseURL           string

	RedisAddress  string
	RedisUsername string
	RedisPassword string
	CacheTTL      time.Duration

	Archive        string
	ArchiveDir     string
	ArchiveBaseURL string
	GCSBucket      string
	Spaces         SpacesConfig

	MQTTBrokerURL string
	MQTTClientID  string

	AuthMode       string
	JobTTL         time.Duration
	AllowedOrigins []string

	LogLevel  string
	LogFormat string
}

// SpacesConfig holds DigitalOcean Spaces settings.
type SpacesConfig struct {
	Endpoint  string
	Region    string
	Bucket    string
	CDNURL    string
	AccessKey string
	SecretKey string
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv and validates it.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:                  get("PORT", "8111"),
		GeminiAPIKey:          get("GEMINI_API_KEY", ""),
		GeminiModel:           get("GEMINI_MODEL", "gemini-2.5-flash"),
		GeminiBaseURL:         get("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OCREngine:             strings.ToLower(get("OCR_ENGINE", OCRTesseract)),
		OCRServiceURL:         get("OCR_SERVICE_URL", ""),
		OCRLanguages:          splitList(get("OCR_LANGUAGES", "eng")),
		Store:                 strings.ToLower(get("STORE", StoreMemory)),
		GoogleCloudProject:    get("GOOGLE_CLOUD_PROJECT", ""),
		GoogleCredentialsFile: get("GOOGLE_CREDENTIALS_FILE", ""),
		DatabaseURL:           get("DATABASE_URL", ""),
		RedisAddress:          get("REDIS_ADDRESS", ""),
		RedisUsername:         get("REDIS_USERNAME", ""),
		RedisPassword:         get("REDIS_PASSWORD", ""),
		Archive:               strings.ToLower(get("ARCHIVE", ArchiveNone)),
		ArchiveDir:            get("ARCHIVE_DIR", "./uploads"),
		ArchiveBaseURL:        get("ARCHIVE_BASE_URL", ""),
		GCSBucket:             get("GCS_BUCKET", ""),
		Spaces: SpacesConfig{
			Endpoint:  get("SPACES_ENDPOINT", ""),
			Region:    get("SPACES_REGION", "us-east-1"),
			Bucket:    get("SPACES_BUCKET", ""),
			CDNURL:    get("SPACES_CDN_URL", ""),
			AccessKey: get("SPACES_ACCESS_KEY", ""),
			SecretKey: get("SPACES_SECRET_KEY", ""),
		},
		AuthMode:       strings.ToLower(get("AUTH_MODE", AuthLocal)),
		MQTTBrokerURL:  get("MQTT_BROKER_URL", ""),
		MQTTClientID:   get("MQTT_CLIENT_ID", "salahtime-backend"),
		AllowedOrigins: splitList(get("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),
		LogLevel:       strings.ToLower(get("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(get("LOG_FORMAT", "json")),
	}

	var err error
	if cfg.GeminiRPS, err = strconv.ParseFloat(get("GEMINI_RPS", "1"), 64); err != nil {
		return nil, fmt.Errorf("GEMINI_RPS: %w", err)
	}
	if cfg.JobTTL, err = time.ParseDuration(get("JOB_TTL", "1h")); err != nil {
		return nil, fmt.Errorf("JOB_TTL: %w", err)
	}
	if cfg.CacheTTL, err = time.ParseDuration(get("CACHE_TTL", "10m")); err != nil {
		return nil, fmt.Errorf("CACHE_TTL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.OCREngine {
	case OCRTesseract, OCRNone:
	case OCRRemote:
		if c.OCRServiceURL == "" {
			return fmt.Errorf("OCR_SERVICE_URL is required when OCR_ENGINE=remote")
		}
	default:
		return fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine)
	}

	switch c.Store {
	case StoreMemory:
	case StoreFirestore:
		if c.GoogleCloudProject == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT is required when STORE=firestore")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE=postgres")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}

	switch c.Archive {
	case ArchiveNone, ArchiveLocal:
	case ArchiveGCS:
		if c.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET is required when ARCHIVE=gcs")
		}
	case ArchiveSpaces:
		if c.Spaces.Endpoint == "" || c.Spaces.Bucket == "" || c.Spaces.CDNURL == "" {
			return fmt.Errorf("SPACES_ENDPOINT, SPACES_BUCKET and SPACES_CDN_URL are required when ARCHIVE=spaces")
		}
	default:
		return fmt.Errorf("unknown ARCHIVE %q", c.Archive)
	}

	switch c.AuthMode {
	case AuthLocal, AuthFirebase:
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}

	if c.GeminiRPS < 0 {
		return fmt.Errorf("GEMINI_RPS must not be negative")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
