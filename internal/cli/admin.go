package cli

import (
	"errors"
	"fmt"

	"supportdesk/internal/entities"
	"supportdesk/internal/repository"
	"supportdesk/internal/usecases"

	"github.com/spf13/cobra"
)

var (
	adminUsername string
	adminPassword string
	adminReset    bool
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin account or reset its password",
	Example: `  supportdesk create-admin --username alice --password 'long-passphrase'
  supportdesk create-admin --username alice --password 'new-passphrase' --reset`,
	Args: cobra.NoArgs,
	RunE: runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().StringVar(&adminUsername, "username", "", "account name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "account password (min 8 characters)")
	createAdminCmd.Flags().BoolVar(&adminReset, "reset", false, "reset the password of an existing account")
	_ = createAdminCmd.MarkFlagRequired("username")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rt, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	auth := usecases.NewAuthUsecase(repository.NewUserRepository(rt.db.Pool), rt.cfg.JWTSecret, false, rt.logger)
	if adminReset {
		if err := auth.ResetPassword(ctx, adminUsername, adminPassword); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "password reset for %s\n", adminUsername)
		return nil
	}

	user, err := auth.CreateUser(ctx, adminUsername, adminPassword, entities.RoleAdmin)
	if errors.Is(err, entities.ErrConflict) {
		return fmt.Errorf("%s already exists, use --reset to change its password", adminUsername)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s created (id %d)\n", user.Username, user.ID)
	return nil
}
