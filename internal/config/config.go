package config

import "time"

// Config holds runtime settings for the Heatwave CLI.
//
// Fields:
//   - StoreBackend: which document store to use: "memory", "pebble" or "postgres".
//   - PebblePath: directory of the Pebble store when StoreBackend is "pebble".
//   - PostgresDSN: connection string when StoreBackend is "postgres".
//   - StatePath: path of the local SQLite session-state file.
//   - JWTSecret: signing secret for the local identity provider's tokens.
//   - TokenValidity: lifetime of issued identity tokens.
//   - DeepLinkPartner: partner handle to jump into a Wave thread with on start.
type Config struct {
	StoreBackend    string
	PebblePath      string
	PostgresDSN     string
	StatePath       string
	JWTSecret       string
	TokenValidity   time.Duration
	DeepLinkPartner string
}

// Store backends.
const (
	BackendMemory   = "memory"
	BackendPebble   = "pebble"
	BackendPostgres = "postgres"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.StoreBackend = BackendPebble
	c.PebblePath = "heatwave.db"
	c.StatePath = "heatwave-state.db"
	c.JWTSecret = "insecure-dev-secret"
	c.TokenValidity = 24 * time.Hour
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment, JSON (if present) and command-line flags. Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
