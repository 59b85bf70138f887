package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Store backends
const (
	StoreBadger   = "badger"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Extraction providers
const (
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderMLX        = "mlx"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	CORSAllowedOrigins []string

	// Logging
	LogFormat string
	LogLevel  string

	// Durable store
	StoreBackend  string
	BadgerDir     string
	PostgresDBURL string

	// Extraction
	ExtractionProvider  string
	GeminiAPIKey        string
	GeminiModel         string
	OpenRouterAPIKey    string
	OpenRouterModelID   string
	OpenRouterTimeout   time.Duration
	MLXBaseURL          string
	MLXTimeout          time.Duration
	ExtractMaxDimension int

	// Image archive
	ArchiveDir        string
	S3Endpoint        string
	S3AccessKeyID     string
	S3AccessKeySecret string
	S3Bucket          string
	S3Region          string

	// Connectivity and sync
	CheckAddr       string
	CheckInterval   time.Duration
	StartOnline     bool
	SyncStatusDelay time.Duration

	// Orders
	OrdersDBURL string
}

// LoadEnv loads a .env file from the project root, falling back to the
// working directory. A missing file is not an error.
func LoadEnv() {
	execPath, err := os.Executable()
	if err != nil {
		log.Warn().Err(err).Msg("could not determine executable path")
	}

	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(execPath)))
	envPath := filepath.Join(projectRoot, ".env")

	if err := godotenv.Load(envPath); err != nil {
		if err := godotenv.Load(); err != nil {
			log.Debug().Msg("no .env file found, using environment variables")
		} else {
			log.Debug().Msg("loaded environment variables from current directory .env file")
		}
	} else {
		log.Debug().Str("path", envPath).Msg("loaded environment variables")
	}
}

// LoadConfig loads the application configuration from environment variables
func LoadConfig() (*Config, error) {
	LoadEnv()
	return FromEnv(), nil
}

// FromEnv builds a Config from the current environment without touching .env files
func FromEnv() *Config {
	config := &Config{
		Port:               getEnvInt("PORT", 8080),
		ReadTimeout:        time.Duration(getEnvInt("READ_TIMEOUT", 30)) * time.Second,
		WriteTimeout:       time.Duration(getEnvInt("WRITE_TIMEOUT", 120)) * time.Second,
		CORSAllowedOrigins: getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),

		LogFormat: getEnvString("LOG_FORMAT", "json"),
		LogLevel:  getEnvString("LOG_LEVEL", "info"),

		StoreBackend:  strings.ToLower(getEnvString("STORE_BACKEND", StoreBadger)),
		BadgerDir:     getEnvString("BADGER_DIR", "./data/labellens"),
		PostgresDBURL: os.Getenv("POSTGRES_DB_URL"),

		ExtractionProvider:  strings.ToLower(getEnvString("EXTRACTION_PROVIDER", ProviderGemini)),
		GeminiAPIKey:        os.Getenv("GEMINI_API_KEY"),
		GeminiModel:         getEnvString("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenRouterAPIKey:    os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModelID:   getEnvString("OPENROUTER_MODEL_ID", "google/gemini-2.5-flash"),
		OpenRouterTimeout:   time.Duration(getEnvInt("OPENROUTER_TIMEOUT", 60)) * time.Second,
		MLXBaseURL:          os.Getenv("MLX_BASE_URL"),
		MLXTimeout:          time.Duration(getEnvInt("MLX_TIMEOUT", 300)) * time.Second,
		ExtractMaxDimension: getEnvInt("EXTRACT_MAX_DIMENSION", 1024),

		ArchiveDir: os.Getenv("ARCHIVE_DIR"),

		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
		S3AccessKeySecret: os.Getenv("S3_ACCESS_KEY_SECRET"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Region:          getEnvString("S3_REGION", "us-east-1"),

		CheckAddr:       os.Getenv("CONNECTIVITY_CHECK_ADDR"),
		CheckInterval:   time.Duration(getEnvInt("CONNECTIVITY_CHECK_INTERVAL", 15)) * time.Second,
		StartOnline:     getEnvBool("START_ONLINE", true),
		SyncStatusDelay: time.Duration(getEnvInt("SYNC_STATUS_DELAY", 2000)) * time.Millisecond,

		OrdersDBURL: os.Getenv("ORDERS_DB_URL"),
	}

	validateConfig(config)
	return config
}

// validateConfig logs warnings for missing values. Nothing here is fatal:
// the service still queues images offline without an extraction provider.
func validateConfig(config *Config) {
	switch config.ExtractionProvider {
	case ProviderGemini:
		if config.GeminiAPIKey == "" {
			log.Warn().Msg("no Gemini API key provided, extraction requests will fail")
		}
	case ProviderOpenRouter:
		if config.OpenRouterAPIKey == "" {
			log.Warn().Msg("no OpenRouter API key provided, extraction requests will fail")
		}
	case ProviderMLX:
		if config.MLXBaseURL == "" {
			log.Warn().Msg("no MLX_BASE_URL provided, extraction requests will fail")
		}
	default:
		log.Warn().Str("provider", config.ExtractionProvider).Msg("unknown extraction provider, falling back to gemini")
		config.ExtractionProvider = ProviderGemini
	}

	switch config.StoreBackend {
	case StoreBadger, StoreMemory:
	case StorePostgres:
		if config.PostgresDBURL == "" {
			log.Warn().Msg("postgres store selected without POSTGRES_DB_URL")
		}
	default:
		log.Warn().Str("backend", config.StoreBackend).Msg("unknown store backend, falling back to badger")
		config.StoreBackend = StoreBadger
	}

	if config.ExtractMaxDimension < 0 {
		config.ExtractMaxDimension = 0
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = 15 * time.Second
	}
}

// getEnvInt gets an integer from an environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Warn().Str("key", key).Str("value", valueStr).Int("default", defaultValue).Msg("invalid integer, using default")
		return defaultValue
	}

	return value
}

// getEnvBool gets a boolean from an environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	valueStr = strings.ToLower(valueStr)
	return valueStr == "true" || valueStr == "1" || valueStr == "yes"
}

// getEnvString gets a string from an environment variable with a default value
func getEnvString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvStringSlice gets a string slice from a comma-separated environment variable
func getEnvStringSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
