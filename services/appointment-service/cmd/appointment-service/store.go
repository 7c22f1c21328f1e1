package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/visitbook/libs/config"
	"github.com/md-rashed-zaman/visitbook/libs/db"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/postgres"
	"github.com/md-rashed-zaman/visitbook/services/appointment-service/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

const sqlitePrefix = "sqlite:"

// openStore picks the backend from the database URL: sqlite:<path> for a single node,
// anything else is handed to pgx.
func openStore(ctx context.Context, cmd *cobra.Command, logger *slog.Logger) (storage.Store, error) {
	databaseURL, _ := cmd.Flags().GetString("database-url")
	databaseURL = strings.TrimSpace(databaseURL)
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		logger.Info("using sqlite store", "path", path)
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}

	maxConns, err := config.Int("DB_MAX_CONNS", 10)
	if err != nil {
		return nil, err
	}
	pool, err := db.Open(ctx, databaseURL, db.PoolOptions{MaxConns: int32(maxConns)})
	if err != nil {
		return nil, err
	}
	logger.Info("using postgres store")
	return postgres.New(pool), nil
}
