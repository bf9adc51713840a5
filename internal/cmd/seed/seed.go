// Package seed parses seed command flags and runs the fixture seeder.
package seed

import (
	"context"
	"flag"
	"strings"

	"github.com/dawitj/gebeya/internal/seed"
)

// Config holds seed command configuration.
type Config struct {
	SeedConfig seed.Config
}

// EnvLookup returns the value for a key when present.
type EnvLookup func(string) (string, bool)

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string, lookup EnvLookup) (Config, error) {
	seedCfg := seed.DefaultConfig()
	seedCfg.DBPath = envOrDefault(lookup, []string{"GEBEYA_CATALOG_DB_PATH"}, seedCfg.DBPath)

	fs.StringVar(&seedCfg.DBPath, "db", seedCfg.DBPath, "catalog database path")
	fs.BoolVar(&seedCfg.Verbose, "v", false, "verbose output")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	return Config{SeedConfig: seedCfg}, nil
}

// Run executes the seed command.
func Run(ctx context.Context, cfg Config) error {
	return seed.Run(ctx, cfg.SeedConfig)
}

func envOrDefault(lookup EnvLookup, keys []string, fallback string) string {
	for _, key := range keys {
		if lookup == nil {
			break
		}
		value, ok := lookup(key)
		if ok {
			trimmed := strings.TrimSpace(value)
			if trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}
