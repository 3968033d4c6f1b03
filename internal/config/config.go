package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Session store backends.
const (
	SessionBackendRedis    = "redis"
	SessionBackendSQLite   = "sqlite"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

// Proof storage backends.
const (
	ProofStorageBackend    = "backend"
	ProofStorageCloudinary = "cloudinary"
)

// Config holds runtime configuration values for the portal service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	APIBaseURL             string
	APITimeout             time.Duration
	SessionBackend         string
	SessionTTL             time.Duration
	SessionCookieSecure    bool
	RedisURL               string
	RedisTimeout           time.Duration
	DatabaseURL            string
	NATSURL                string
	EventChannel           string
	ProofStorage           string
	ProofMaxSizeMB         int
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	ReportSystemName       string
	LoginRateLimit         int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Student Hub Portal")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "3000")
	v.SetDefault("api.base_url", "http://127.0.0.1:8000")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("session.backend", SessionBackendRedis)
	v.SetDefault("session.ttl", "24h")
	v.SetDefault("redis.timeout", "3s")
	v.SetDefault("session.cookie_secure", false)
	v.SetDefault("events.channel", "studenthub:activities")
	v.SetDefault("proof.storage", ProofStorageBackend)
	v.SetDefault("proof.max_size_mb", 10)
	v.SetDefault("cloudinary.folder", "studenthub/proofs")
	v.SetDefault("report.system_name", "smart_student_hub")
	v.SetDefault("login.rate_limit", 10)

	apiTimeout, err := parseDuration(v.GetString("api.timeout"), 10*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid api timeout: %w", err)
	}

	sessionTTL, err := parseDuration(v.GetString("session.ttl"), 24*time.Hour)
	if err != nil {
		return Config{}, fmt.Errorf("invalid session ttl: %w", err)
	}

	redisTimeout, err := parseDuration(v.GetString("redis.timeout"), 3*time.Second)
	if err != nil {
		return Config{}, fmt.Errorf("invalid redis timeout: %w", err)
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		APIBaseURL:             strings.TrimRight(v.GetString("api.base_url"), "/"),
		APITimeout:             apiTimeout,
		SessionBackend:         strings.ToLower(strings.TrimSpace(v.GetString("session.backend"))),
		SessionTTL:             sessionTTL,
		SessionCookieSecure:    v.GetBool("session.cookie_secure"),
		RedisURL:               v.GetString("redis.url"),
		RedisTimeout:           redisTimeout,
		DatabaseURL:            v.GetString("database.url"),
		NATSURL:                v.GetString("nats.url"),
		EventChannel:           v.GetString("events.channel"),
		ProofStorage:           strings.ToLower(strings.TrimSpace(v.GetString("proof.storage"))),
		ProofMaxSizeMB:         v.GetInt("proof.max_size_mb"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		ReportSystemName:       v.GetString("report.system_name"),
		LoginRateLimit:         v.GetInt("login.rate_limit"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api base url must be provided")
	}

	switch c.SessionBackend {
	case SessionBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("redis url must be provided for the redis session backend")
		}
	case SessionBackendSQLite, SessionBackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database url must be provided for the %s session backend", c.SessionBackend)
		}
	case SessionBackendMemory:
	default:
		return fmt.Errorf("unknown session backend %q", c.SessionBackend)
	}

	switch c.ProofStorage {
	case ProofStorageBackend:
	case ProofStorageCloudinary:
		if c.CloudinaryCloudName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			return fmt.Errorf("cloudinary credentials must be provided for cloudinary proof storage")
		}
	default:
		return fmt.Errorf("unknown proof storage %q", c.ProofStorage)
	}

	return nil
}

func parseDuration(value string, fallback time.Duration) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return time.ParseDuration(value)
}
