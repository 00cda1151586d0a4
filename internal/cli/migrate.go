package cli

import (
	"fmt"
	"os"

	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"

	"github.com/spf13/cobra"
)

var migrateSeed string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	Long: `Creates every table and index if missing. Safe to run repeatedly.

With --seed, AI agents from a YAML preset file are added; agents whose
name already exists are skipped.

Example:
  supportdesk migrate --seed configs/agents.example.yaml`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateSeed, "seed", "", "YAML file with AI agent presets")
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	rt.logger.Info("schema ready")

	if migrateSeed == "" {
		return nil
	}
	f, err := os.Open(migrateSeed)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	agents := usecases.NewAgentUsecase(
		repository.NewAgentRepository(rt.db.Pool),
		repository.NewSettingsRepository(rt.db.Pool),
		rt.logger,
	)
	n, err := agents.Seed(ctx, f)
	if err != nil {
		return fmt.Errorf("seed agents: %w", err)
	}
	rt.logger.Info("agents seeded", "file", migrateSeed, "created", n)
	return nil
}
