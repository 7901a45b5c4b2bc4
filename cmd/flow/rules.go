package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/classification"
	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/pattern"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect and seed keyword rules",
	}
	cmd.AddCommand(rulesListCmd())
	cmd.AddCommand(rulesSeedCmd())
	cmd.AddCommand(rulesTestCmd())
	return cmd
}

func rulesListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List rules by priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			rules, err := a.store.ListRules(cmd.Context(), a.userID(), !all)
			if err != nil {
				return err
			}
			if len(rules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("No rules. Seed the built-in ones with: flow rules seed"))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRIORITY\tFLAGS\tLEAF\tKEYWORDS")
			for _, r := range rules {
				var flags []string
				if r.Strict {
					flags = append(flags, "strict")
				}
				if r.IsSystem {
					flags = append(flags, "system")
				}
				if !r.Active {
					flags = append(flags, "inactive")
				}
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					shortID(r.ID), r.Name, r.Priority, strings.Join(flags, ","), shortID(r.LeafID),
					truncate(r.Keywords, 50))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include inactive rules")

	return cmd
}

func rulesSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Store the built-in system rules and their categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			n, err := taxonomy.SeedSystemRules(cmd.Context(), a.store, a.userID())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Seeded %d system rules", n)))
			return nil
		},
	}
}

func rulesTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test <description>",
		Short: "Show which rules fire for a description and how it resolves",
		Example: `  flow rules test "REWE Markt GmbH -- KARTENZAHLUNG"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			idx, err := taxonomy.Build(ctx, a.store, a.userID())
			if err != nil {
				return err
			}
			rules, err := a.store.ListRules(ctx, a.userID(), true)
			if err != nil {
				return err
			}
			opts := a.cfg.IngestOptions()
			snap := pattern.NewSnapshot(rules, pattern.WithMode(opts.MatchMode))

			out := cmd.OutOrStdout()
			matches := snap.Match(args[0])
			if len(matches) == 0 {
				fmt.Fprintln(out, cli.FormatWarning("No rule fires; the transaction would stay OPEN"))
				return nil
			}
			for _, m := range matches {
				flag := ""
				if m.Strict {
					flag = " strict"
				}
				fmt.Fprintf(out, "  rule %s fired on %q (priority %d%s)\n", shortID(m.RuleID), m.MatchedKeyword, m.Priority, flag)
			}

			res := classification.Classify(matches, idx, opts.Classify)
			leaf, _ := idx.Lookup(res.LeafID)
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("%s: %s > %s > %s (confidence %d, review %t)",
				res.Status, leaf.Category1, leaf.Category2, leaf.Category3, res.Confidence, res.NeedsReview)))
			return nil
		},
	}
}
