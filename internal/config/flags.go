package config

import (
	"flag"
	"os"

	"heatwave/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-s string   store backend: memory, pebble or postgres
//	-d string   pebble directory or postgres DSN, depending on backend
//	-w string   partner handle to open a Wave thread with on start
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-d", "-w"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.StoreBackend, "s", cfg.StoreBackend, "store backend (memory, pebble, postgres)")
	dataPath := fs.String("d", "", "data location for the selected backend")
	fs.StringVar(&cfg.DeepLinkPartner, "w", cfg.DeepLinkPartner, "open a wave thread with this partner on start")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	if *dataPath != "" {
		switch cfg.StoreBackend {
		case BackendPostgres:
			cfg.PostgresDSN = *dataPath
		default:
			cfg.PebblePath = *dataPath
		}
	}
}
