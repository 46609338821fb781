package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/projection"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "storectl",
		Short:         "Storefront maintenance commands",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (default $STOREFRONT_CONFIG)")

	load := func() (*config.Config, error) {
		return config.Load(configPath)
	}

	root.AddCommand(newMigrateCmd(load))
	root.AddCommand(newReplayCmd(load))
	root.AddCommand(newTokenCmd(load))
	return root
}

type configLoader func() (*config.Config, error)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the events and read model tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			db, err := store.ConnectPostgres(cfg.Database.URL)
			if err != nil {
				return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
			}
			defer db.Close()

			if err := store.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied")
			return nil
		},
	}
}

func newReplayCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "replay",
		Short: "Rebuild the order read models from the event store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.EventStore == config.StoreMemory {
				return errors.New("the memory event store has nothing to replay")
			}
			return replay(cmd.Context(), cmd, cfg)
		},
	}
}

func replay(ctx context.Context, cmd *cobra.Command, cfg *config.Config) error {
	db, err := store.ConnectPostgres(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer db.Close()

	eventStore, err := store.OpenEventStore(ctx, store.Backend(cfg.EventStore), db, store.DynamoOptions{
		Table:  cfg.DynamoDB.Table,
		Region: cfg.DynamoDB.Region,
	}, nil)
	if err != nil {
		return err
	}

	n, err := projection.NewProjector(store.NewPostgresReadStore(db)).Replay(ctx, eventStore)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Replayed %d events\n", n)
	return nil
}

func newTokenCmd(load configLoader) *cobra.Command {
	var id auth.Identity

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if err := cfg.ValidateSecret(); err != nil {
				return err
			}
			if id.UserID == "" {
				return errors.New("--id is required")
			}

			token, expiresAt, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry).GenerateAccessToken(id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format("2006-01-02T15:04:05Z"))
			return nil
		},
	}

	cmd.Flags().StringVar(&id.UserID, "id", "", "user id")
	cmd.Flags().StringVar(&id.Name, "name", "", "display name")
	cmd.Flags().StringVar(&id.Email, "email", "", "email address")
	cmd.Flags().BoolVar(&id.IsAdmin, "admin", false, "grant the admin role")
	cmd.Flags().BoolVar(&id.IsSeller, "seller", false, "grant the seller role")
	return cmd
}
