// internal/config/config.go

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	NATS        NATSConfig
	Twitter     TwitterConfig
	Ingest      IngestConfig
	Dashboard   DashboardConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	CorsOrigins     []string
}

// DatabaseConfig holds the engagement snapshot database configuration
type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
	SSLMode      string
	Table        string
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	Enabled        bool
	URL            string
	MaxReconnects  int
	ReconnectWait  time.Duration
	ConnectTimeout time.Duration
	EventsSubject  string
}

// TwitterConfig holds X API configuration for follower refresh
type TwitterConfig struct {
	BearerToken string
	Host        string
	Timeout     time.Duration
	BatchSize   int
}

// IngestConfig holds upload decoding configuration
type IngestConfig struct {
	Charset         string
	CacheEntries    int
	MaxUploadBytes  int64
	LegislatorDelim string
	PostDelim       string
}

// DashboardConfig holds dataset registry and top-N slider configuration
type DashboardConfig struct {
	MaxDatasets       int
	LegislatorTopMin  int
	LegislatorTopMax  int
	LegislatorTopInit int
	PostTopMin        int
	PostTopMax        int
	PostTopInit       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (Config, error) {
	config := Config{
		Environment: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CorsOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "legisdash"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 5),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 1),
			MaxLifetime:  getEnvAsDuration("DB_MAX_LIFETIME", 5*time.Minute),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			Table:        getEnv("DB_ENGAGEMENT_TABLE", "engajamento_deputados"),
		},
		NATS: NATSConfig{
			Enabled:        getEnvAsBool("NATS_ENABLED", false),
			URL:            getEnv("NATS_URL", "nats://localhost:4222"),
			MaxReconnects:  getEnvAsInt("NATS_MAX_RECONNECTS", 10),
			ReconnectWait:  getEnvAsDuration("NATS_RECONNECT_WAIT", 1*time.Second),
			ConnectTimeout: getEnvAsDuration("NATS_CONNECT_TIMEOUT", 2*time.Second),
			EventsSubject:  getEnv("NATS_EVENTS_SUBJECT", "legisdash.datasets"),
		},
		Twitter: TwitterConfig{
			BearerToken: getEnv("TWITTER_BEARER_TOKEN", ""),
			Host:        getEnv("TWITTER_API_HOST", "https://api.twitter.com"),
			Timeout:     getEnvAsDuration("TWITTER_TIMEOUT", 10*time.Second),
			BatchSize:   getEnvAsInt("TWITTER_BATCH_SIZE", 100),
		},
		Ingest: IngestConfig{
			Charset:         getEnv("INGEST_CHARSET", "utf-8"),
			CacheEntries:    getEnvAsInt("INGEST_CACHE_ENTRIES", 32),
			MaxUploadBytes:  int64(getEnvAsInt("INGEST_MAX_UPLOAD_BYTES", 32<<20)),
			LegislatorDelim: getEnv("INGEST_LEGISLATOR_DELIMITER", ","),
			PostDelim:       getEnv("INGEST_POST_DELIMITER", ";"),
		},
		Dashboard: DashboardConfig{
			MaxDatasets:       getEnvAsInt("DASHBOARD_MAX_DATASETS", 50),
			LegislatorTopMin:  getEnvAsInt("DASHBOARD_LEGISLATOR_TOP_MIN", 5),
			LegislatorTopMax:  getEnvAsInt("DASHBOARD_LEGISLATOR_TOP_MAX", 20),
			LegislatorTopInit: getEnvAsInt("DASHBOARD_LEGISLATOR_TOP_DEFAULT", 10),
			PostTopMin:        getEnvAsInt("DASHBOARD_POST_TOP_MIN", 5),
			PostTopMax:        getEnvAsInt("DASHBOARD_POST_TOP_MAX", 30),
			PostTopInit:       getEnvAsInt("DASHBOARD_POST_TOP_DEFAULT", 10),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return config, validate(config)
}

// validate checks if config is valid
func validate(config Config) error {
	if len([]rune(config.Ingest.LegislatorDelim)) != 1 {
		return fmt.Errorf("legislator delimiter must be a single character, got %q", config.Ingest.LegislatorDelim)
	}
	if len([]rune(config.Ingest.PostDelim)) != 1 {
		return fmt.Errorf("post delimiter must be a single character, got %q", config.Ingest.PostDelim)
	}

	d := config.Dashboard
	if d.LegislatorTopMin < 0 || d.LegislatorTopMin > d.LegislatorTopMax {
		return fmt.Errorf("invalid legislator top-n range %d-%d", d.LegislatorTopMin, d.LegislatorTopMax)
	}
	if d.PostTopMin < 0 || d.PostTopMin > d.PostTopMax {
		return fmt.Errorf("invalid post top-n range %d-%d", d.PostTopMin, d.PostTopMax)
	}

	if config.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload size must be positive")
	}

	return nil
}

// Delimiter returns the first rune of a configured delimiter
func Delimiter(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
