package cli

import (
	"context"
	"fmt"

	"github.com/membergate/membergate/internal/config"
	"github.com/membergate/membergate/internal/store"
)

// openStore validates configuration and opens the database for a one-shot
// CLI command. Callers own Close.
func openStore() (*store.Store, error) {
	cfg := config.Load()
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("database_url is not configured (set MEMBERGATE_DATABASE_URL)")
	}
	st, err := store.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return st, nil
}

// cmdCtx returns a background context for CLI commands.
func cmdCtx() context.Context {
	return context.Background()
}
