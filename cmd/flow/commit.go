package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/ingest"
	"github.com/Veraticus/statement-flow/internal/model"
)

func commitCmd() *cobra.Command {
	var noProgress bool

	cmd := &cobra.Command{
		Use:   "commit <batch-id>",
		Short: "Classify a preview batch and write its transactions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), "Commit",
				"No transactions were written; the batch is still in preview.")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			var opts []ingest.CommitOption
			if !noProgress {
				items, err := a.store.ListItems(ctx, args[0], model.ItemPending)
				if err != nil {
					return err
				}
				progress := cli.NewProgress(cmd.ErrOrStderr(), len(items), "Committing")
				opts = append(opts, ingest.WithProgress(progress.Update))
			}

			res, err := a.svc.Commit(ctx, a.userID(), args[0], opts...)
			if err != nil {
				return err
			}
			printCommit(cmd.OutOrStdout(), res)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "do not draw a progress bar")

	return cmd
}

func printCommit(w io.Writer, res *ingest.CommitResult) {
	body := fmt.Sprintf("committed   %d\nmatched     %d\nopen        %d\nconflicts   %d\nalready had %d",
		res.Committed, res.Matched, res.Open, res.Conflicts, res.SkippedExisting)
	fmt.Fprintln(w, cli.RenderBox("Batch "+res.BatchID, body))
	if res.Open+res.Conflicts > 0 {
		fmt.Fprintln(w, cli.FormatInfo("Review open items with: flow transactions --review"))
	}
}
