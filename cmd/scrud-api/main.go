package main

import (
	"log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/scrud-api/pkg/config"
	"github.com/noah-isme/scrud-api/pkg/logger"
)

// @title SCRUD Students API
// @version 1.0.0
// @description Students, teachers, courses, enrollments and ECTS-weighted grades.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

var rootCmd = &cobra.Command{
	Use:           "scrud-api",
	Short:         "Student course registration and grading API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("scrud-api: %v", err)
	}
}

// bootstrap loads configuration and the process logger shared by every command.
func bootstrap() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
