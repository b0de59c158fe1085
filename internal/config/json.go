package config

import (
	"encoding/json"
	"os"
	"time"

	"heatwave/internal/flagx"
	"heatwave/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify the token lifetime either as a string
// like "24h" or as integer nanoseconds.
type JsonConfig struct {
	StoreBackend  string         `json:"store_backend"`
	PebblePath    string         `json:"pebble_path"`
	PostgresDSN   string         `json:"postgres_dsn"`
	StatePath     string         `json:"state_path"`
	JWTSecret     string         `json:"jwt_secret"`
	TokenValidity timex.Duration `json:"token_validity"`
}

// parseJson overlays Config with values loaded from a JSON file. The file
// path comes from the -c/-config flags via flagx.JsonConfigFlags(); when
// absent, nothing is loaded. Only fields present in the JSON override the
// current values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.StoreBackend != "" {
		cfg.StoreBackend = jc.StoreBackend
	}
	if jc.PebblePath != "" {
		cfg.PebblePath = jc.PebblePath
	}
	if jc.PostgresDSN != "" {
		cfg.PostgresDSN = jc.PostgresDSN
	}
	if jc.StatePath != "" {
		cfg.StatePath = jc.StatePath
	}
	if jc.JWTSecret != "" {
		cfg.JWTSecret = jc.JWTSecret
	}
	if jc.TokenValidity.Duration != 0 {
		cfg.TokenValidity = time.Duration(jc.TokenValidity.Duration)
	}
}
