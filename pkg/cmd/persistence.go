// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/ckpd/flowcanvas/pkg/persistence"
	"github.com/ckpd/flowcanvas/pkg/persistence/file"
	"github.com/ckpd/flowcanvas/pkg/persistence/postgresql"
	"github.com/ckpd/flowcanvas/pkg/persistence/redis"
)

// NewPersistence creates a persistence backend from a database URL. The URL
// scheme selects the backend; anything unrecognized is treated as a file path.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	parts := strings.SplitN(databaseURL, "://", 2)
	if len(parts) < 2 {
		return "file"
	}

	return parts[0]
}
