package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/pkg/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logr, err := bootstrap()
	if err != nil {
		return err
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cmd.Context(), cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	applied, err := database.Migrate(cmd.Context(), db, logr)
	if err != nil {
		return err
	}
	logr.Info("migrations complete", zap.Strings("applied", applied))
	return nil
}
