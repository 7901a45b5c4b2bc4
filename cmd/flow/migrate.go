package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/config"
	"github.com/Veraticus/statement-flow/internal/storage"
)

func migrateCmd() *cobra.Command {
	var (
		status bool
		down   bool
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Other commands migrate on startup; this command reports the schema
version or reverts the schema with --down. A checkpoint is taken before
any change.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(cfg.Database.Path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			version, dirty, err := store.SchemaVersion()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if status {
				fmt.Fprintf(out, "database   %s\nversion    %d (latest %d)\ndirty      %t\n",
					store.Path(), version, storage.ExpectedSchemaVersion, dirty)
				return nil
			}

			if version > 0 {
				if err := autoCheckpoint(ctx, store, "migrate"); err != nil {
					return err
				}
			}

			if down {
				slog.Info("Reverting database schema", "database", store.Path(), "from", version)
				if err := store.MigrateDown(ctx); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintln(out, cli.FormatSuccess("Database schema reverted"))
				return nil
			}

			slog.Info("Running database migrations", "database", store.Path(), "from", version)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Database schema at version %d", storage.ExpectedSchemaVersion)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without changing it")
	cmd.Flags().BoolVar(&down, "down", false, "revert all migrations (drops every table)")

	return cmd
}
