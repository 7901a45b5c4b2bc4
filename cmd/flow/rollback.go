package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/storage"
)

func rollbackCmd() *cobra.Command {
	var (
		yes          bool
		noCheckpoint bool
	)

	cmd := &cobra.Command{
		Use:   "rollback <batch-id>",
		Short: "Remove the transactions of a committed batch",
		Long: `Delete every transaction a batch created and return the batch to preview.

Only transactions linked to the batch's own rows are removed. If any link
points at a transaction from another batch, nothing is deleted. A
checkpoint of the database is taken first unless --no-checkpoint is set.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			batch, err := a.store.GetBatch(ctx, a.userID(), args[0])
			if err != nil {
				return err
			}

			if !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				prompt := fmt.Sprintf("Roll back batch %s (%s, %d rows)?", batch.ID, batch.Filename, batch.Counts.NewItems)
				ok, err := reader.Confirm(ctx, cmd.OutOrStdout(), prompt)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Rollback cancelled."))
					return nil
				}
			}

			if !noCheckpoint {
				if err := autoCheckpoint(ctx, a.store, "rollback"); err != nil {
					return err
				}
			}

			res, err := a.svc.Rollback(ctx, a.userID(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Rolled back batch %s: %d transactions and %d links removed, %d rows back in preview",
				res.BatchID, res.TransactionsDeleted, res.LinksDeleted, res.ItemsReset)))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "skip the automatic checkpoint")

	return cmd
}

// autoCheckpoint snapshots the database before a destructive command. In
// memory databases are skipped.
func autoCheckpoint(ctx context.Context, store *storage.SQLiteStorage, operation string) error {
	manager, err := store.NewCheckpointManager()
	if errors.Is(err, storage.ErrInMemoryCheckpoint) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create checkpoint manager: %w", err)
	}
	info, err := manager.AutoCheckpoint(ctx, operation)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	slog.Info("Checkpoint taken", "id", info.ID)
	return nil
}
