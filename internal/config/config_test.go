package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	assert.Equal(t, BackendPebble, cfg.StoreBackend)
	assert.Equal(t, "heatwave.db", cfg.PebblePath)
	assert.Equal(t, "heatwave-state.db", cfg.StatePath)
	assert.Equal(t, 24*time.Hour, cfg.TokenValidity)
	assert.Empty(t, cfg.DeepLinkPartner)
}

func TestParseEnvOverlays(t *testing.T) {
	t.Setenv("HEATWAVE_STORE", BackendPostgres)
	t.Setenv("HEATWAVE_POSTGRES_DSN", "postgres://localhost/heatwave")
	t.Setenv("HEATWAVE_TOKEN_TTL", "1h")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://localhost/heatwave", cfg.PostgresDSN)
	assert.Equal(t, time.Hour, cfg.TokenValidity)
	// Untouched fields keep their defaults.
	assert.Equal(t, "heatwave.db", cfg.PebblePath)
}

func TestParseEnvBadDurationIgnored(t *testing.T) {
	t.Setenv("HEATWAVE_TOKEN_TTL", "not-a-duration")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, 24*time.Hour, cfg.TokenValidity)
}

func TestParseJsonOverlays(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "conf.json")
	data := `{"store_backend":"memory","state_path":"/tmp/state.db","token_validity":"30m"}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"heatwave", "-c", path}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, "/tmp/state.db", cfg.StatePath)
	assert.Equal(t, 30*time.Minute, cfg.TokenValidity)
	assert.Equal(t, "heatwave.db", cfg.PebblePath)
}

func TestParseJsonNoFile(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"heatwave"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)

	assert.Equal(t, BackendPebble, cfg.StoreBackend)
}

func TestParseFlags(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"heatwave", "-s", BackendPostgres, "-d", "postgres://localhost/hw", "-w", "hicks"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, "postgres://localhost/hw", cfg.PostgresDSN)
	assert.Equal(t, "hicks", cfg.DeepLinkPartner)
}

func TestParseFlagsDataPathForPebble(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{"heatwave", "-d", "/var/lib/heatwave"}

	cfg := &Config{}
	cfg.LoadDefaults()
	parseFlags(cfg)

	assert.Equal(t, BackendPebble, cfg.StoreBackend)
	assert.Equal(t, "/var/lib/heatwave", cfg.PebblePath)
}
