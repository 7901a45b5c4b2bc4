package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

func transactionsCmd() *cobra.Command {
	var (
		batchID string
		review  bool
		limit   int
	)

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List committed transactions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			txns, err := a.store.ListTransactions(cmd.Context(), service.TransactionFilter{
				UserID:      a.userID(),
				BatchID:     batchID,
				NeedsReview: review,
				Limit:       limit,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(txns) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No transactions found."))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tDATE\tAMOUNT\tDESCRIPTION\tCATEGORY\tSTATE")
			for _, t := range txns {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.ID, t.PaymentDate.Format("2006-01-02"), cli.FormatAmount(t.Amount, t.Currency),
					truncate(t.DescRaw, 40), categoryPath(t), cli.FormatReviewState(t))
				if t.ConflictFlag {
					for _, c := range t.Candidates {
						fmt.Fprintf(w, "\t\t\t%s\t%s\t%s\n",
							cli.SubtleStyle.Render("candidate "+c.LeafID),
							strings.Join([]string{c.Category1, c.Category2, c.Category3}, " > "),
							cli.SubtleStyle.Render(fmt.Sprintf("%s (%d)", c.MatchedKeyword, c.Priority)))
					}
				}
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "only transactions of this batch")
	cmd.Flags().BoolVar(&review, "review", false, "only transactions that need review")
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum number of transactions")

	return cmd
}

func reviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <transaction-id> <leaf-id>",
		Short: "Assign a category leaf to a transaction by hand",
		Long: `Resolve an OPEN or CONFLICT transaction by choosing its leaf.

Reviewed transactions keep their leaf when rules are reapplied. Leaf ids
are listed by: flow taxonomy list`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			txn, err := a.svc.Review(cmd.Context(), a.userID(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s is now %s", txn.ID, categoryPath(*txn))))
			return nil
		},
	}
}

func reapplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reapply",
		Short: "Classify all transactions again with the current rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			interrupts := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx := interrupts.HandleInterrupts(cmd.Context(), "Reapply", "No classifications were changed.")

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := a.svc.Reapply(ctx, a.userID())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Reapplied rules to %d transactions: %d changed (%d matched, %d open, %d conflicts)",
				res.Scanned, res.Changed, res.Matched, res.Open, res.Conflicts)))
			return nil
		},
	}
}

func categoryPath(t model.Transaction) string {
	path := strings.Join([]string{t.Category1, t.Category2, t.Category3}, " > ")
	if t.AppCategory != "" {
		path += " [" + t.AppCategory + "]"
	}
	return path
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
