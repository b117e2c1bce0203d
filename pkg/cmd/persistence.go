// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dukex/crmflow/pkg/persistence"
	"github.com/dukex/crmflow/pkg/persistence/cache"
	"github.com/dukex/crmflow/pkg/persistence/file"
	"github.com/dukex/crmflow/pkg/persistence/postgresql"
)

const (
	providerFile       = "file"
	providerPostgreSQL = "postgresql"
)

// NewPersistence opens the backend named by the URL scheme: postgres:// and
// postgresql:// use PostgreSQL, anything else is a file store root.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parsePersistenceProvider(databaseURL) {
	case providerPostgreSQL:
		store, err := postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
		if err != nil {
			return nil, err
		}

		return store, nil
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parsePersistenceProvider(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return providerFile
	}

	switch scheme {
	case "postgres", "postgresql":
		return providerPostgreSQL
	default:
		return providerFile
	}
}

// NewRedisClient returns nil when redisURL is empty.
func NewRedisClient(redisURL string) (redis.UniversalClient, error) {
	if redisURL == "" {
		return nil, nil //nolint:nilnil // caching is optional
	}

	options, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	return redis.NewClient(options), nil
}

// NewWorkflowRepository returns the store's workflow repository, cached in Redis when client is set.
func NewWorkflowRepository(store persistence.Persistence, client redis.UniversalClient, logger *slog.Logger) persistence.WorkflowRepository {
	if client == nil {
		return store.WorkflowRepository()
	}

	return cache.NewWorkflowRepository(store.WorkflowRepository(), client, cache.DefaultTTL, logger)
}
