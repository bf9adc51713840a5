// Package catalog parses catalog service flags and launches the service.
package catalog

import (
	"context"
	"flag"

	entrypoint "github.com/dawitj/gebeya/internal/platform/cmd"
	server "github.com/dawitj/gebeya/internal/services/catalog/app"
)

// Config holds catalog command configuration.
type Config struct {
	Port int `env:"GEBEYA_CATALOG_PORT" envDefault:"8080"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The catalog HTTP server port")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the catalog HTTP API service.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceCatalog, func(context.Context) error {
		return server.Run(ctx, cfg.Port)
	})
}
