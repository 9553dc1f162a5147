package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultFonoapiEndpoint = "https://fonoapi.freshpixl.com/v1/getdevice"

type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	// Empty DSN runs the ledger in memory, seeded with the default catalog.
	DatabaseDSN   string
	RunMigrations bool

	OfflineMode     bool
	FonoapiToken    string
	FonoapiEndpoint string
	FonoapiTimeout  time.Duration

	// Optional shared metadata store.
	RedisAddr string

	// Optional event publishing.
	RabbitURL     string
	PublishEvents bool
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first if present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:        strings.ToLower(env("LOG_LEVEL", "info")),

		DatabaseDSN:   env("DATABASE_DSN", ""),
		RunMigrations: envBool("RUN_MIGRATIONS", true),

		OfflineMode:     envBool("OFFLINE_MODE", false),
		FonoapiToken:    strings.TrimSpace(env("FONOAPI_TOKEN", "")),
		FonoapiEndpoint: env("FONOAPI_ENDPOINT", DefaultFonoapiEndpoint),
		FonoapiTimeout:  envDuration("FONOAPI_TIMEOUT", 10*time.Second),

		RedisAddr: env("REDIS_ADDR", ""),

		RabbitURL:     env("RABBITMQ_URL", ""),
		PublishEvents: envBool("PUBLISH_EVENTS", true),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(env(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
