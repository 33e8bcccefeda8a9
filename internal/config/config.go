// Package config loads client settings from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"minigame/client/internal/validator"
)

// Config carries everything the client needs to reach a backend.
type Config struct {
	// HTTPBaseURL is the backend REST base, e.g. http://localhost:8080.
	HTTPBaseURL string `validate:"required,url"`
	// WSBaseURL is the backend websocket base, e.g. ws://localhost:8080.
	WSBaseURL string `validate:"required"`
	// StorePath overrides the default settings database location.
	StorePath string
	// OTLPEndpoint enables telemetry export when set.
	OTLPEndpoint string
	// ListenAddr is the bind address for the built-in dev server.
	ListenAddr string `validate:"required"`
}

// Load reads configuration from the environment. A .env file in the
// working directory is merged in when present; missing is fine.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("skipping .env file", "error", err)
	}

	cfg := &Config{
		HTTPBaseURL:  getEnv("MINIGAME_HTTP_URL", "http://localhost:8080"),
		WSBaseURL:    getEnv("MINIGAME_WS_URL", "ws://localhost:8080"),
		StorePath:    os.Getenv("MINIGAME_STORE_PATH"),
		OTLPEndpoint: os.Getenv("MINIGAME_OTLP_ENDPOINT"),
		ListenAddr:   getEnv("MINIGAME_LISTEN_ADDR", ":8080"),
	}

	if err := validator.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
