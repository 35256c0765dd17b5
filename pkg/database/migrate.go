package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func newMigrator(db *sqlx.DB) (*goose.Provider, error) {
	sources, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db.DB, sources)
	if err != nil {
		return nil, fmt.Errorf("load migrations: %w", err)
	}
	return provider, nil
}

// Migrate applies every embedded migration not yet recorded in goose's version
// table and returns the names of the files it ran, in order.
func Migrate(ctx context.Context, db *sqlx.DB, logger *zap.Logger) ([]string, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider, err := newMigrator(db)
	if err != nil {
		return nil, err
	}

	results, err := provider.Up(ctx)
	ran := make([]string, 0, len(results))
	for _, result := range results {
		if result.Error != nil {
			continue
		}
		name := strings.TrimSuffix(path.Base(result.Source.Path), ".sql")
		logger.Info("migration applied",
			zap.Int64("version", result.Source.Version),
			zap.String("file", name),
			zap.Duration("duration", result.Duration),
		)
		ran = append(ran, name)
	}
	if err != nil {
		return ran, fmt.Errorf("apply migrations: %w", err)
	}
	return ran, nil
}
