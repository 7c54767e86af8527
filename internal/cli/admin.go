package cli

import (
	"context"
	"fmt"

	"keywe-backend/internal"

	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := internal.InitDB(cfg); err != nil {
				return err
			}
			defer internal.CloseDB()
			fmt.Fprintln(cmd.OutOrStdout(), "database migrated")
			return nil
		},
	}
}

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load roles, the filter taxonomy and preference options",
		Long:  "Load reference data. Safe to run repeatedly: existing rows are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.seed(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "reference data seeded")
				return nil
			})
		},
	}
}

func newRetagCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retag",
		Short: "Tag every property from its columns",
		Long:  "Attach filter options derived from each property's columns. Existing tags are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				n, err := a.services.Tagging.TagAllProperties(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tagged %d properties\n", n)
				return nil
			})
		},
	}
}

func newCreateAdminCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create or promote a super admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, a *app) error {
				if err := a.services.Authz.InitializeDefaultRoles(ctx); err != nil {
					return err
				}
				user, err := a.services.Auth.CreateAdmin(ctx, name, email, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s ready (id %s)\n", email, user.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email (required)")
	cmd.Flags().StringVar(&password, "password", "", "password, at least 8 characters (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func withApp(fn func(context.Context, *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
