package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the environment. A .env file in
// the working directory is loaded first (missing file is fine); real
// environment variables win over .env entries, which godotenv guarantees by
// never overwriting existing keys.
//
// Recognized variables:
//
//	HEATWAVE_STORE          store backend name
//	HEATWAVE_PEBBLE_PATH    pebble directory
//	HEATWAVE_POSTGRES_DSN   postgres connection string
//	HEATWAVE_STATE_PATH     local state file
//	HEATWAVE_JWT_SECRET     token signing secret
//	HEATWAVE_TOKEN_TTL      token lifetime, time.ParseDuration format
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("HEATWAVE_STORE"); v != "" {
		cfg.StoreBackend = v
	}
	if v := os.Getenv("HEATWAVE_PEBBLE_PATH"); v != "" {
		cfg.PebblePath = v
	}
	if v := os.Getenv("HEATWAVE_POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("HEATWAVE_STATE_PATH"); v != "" {
		cfg.StatePath = v
	}
	if v := os.Getenv("HEATWAVE_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("HEATWAVE_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.TokenValidity = d
		}
	}
}
