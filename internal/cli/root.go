package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"supportdesk/internal/config"
	"supportdesk/internal/infrastructure"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "supportdesk",
	Short: "Customer support and CRM dashboard backend",
	Long: `supportdesk serves the dashboard JSON API: customers and the sales funnel,
the conversation inbox with a simulated AI responder, knowledge bases,
webhook relay and analytics.

Configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, createAdminCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds what every command needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	db       *infrastructure.PostgresClient
	closeLog func() error
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)

	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	db, err := infrastructure.NewPostgresClient(connectCtx, cfg.DatabaseURL)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &app{cfg: cfg, logger: logger, db: db, closeLog: closeLog}, nil
}

func (rt *app) Close() {
	rt.db.Close()
	if err := rt.closeLog(); err != nil {
		fmt.Fprintln(os.Stderr, "close log file:", err)
	}
}
