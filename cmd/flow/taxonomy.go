package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/taxonomy"
)

func taxonomyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "taxonomy",
		Short: "Manage the three-level category taxonomy",
	}
	cmd.AddCommand(taxonomyImportCmd())
	cmd.AddCommand(taxonomyListCmd())
	return cmd
}

func taxonomyImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <classification.csv>",
		Short: "Import categories and keyword rules from a classification file",
		Long: `Create taxonomy paths, app categories and one keyword rule per row.

The file needs the columns Nivel_1_PT, Nivel_2_PT and Nivel_3_PT; Key_words,
Key_words_negative, Receita/Despesa, Fixo/Variavel, Recorrente and
App classificacao are optional. Importing the same file again is safe.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			res, err := taxonomy.ImportClassification(cmd.Context(), a.store, a.userID(), data)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf(
				"Imported %d rows: %d leaves, %d rules, %d skipped", res.Rows, res.Leaves, res.Rules, res.Skipped)))
			return nil
		},
	}
}

func taxonomyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List category leaves with their ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			idx, err := taxonomy.Build(cmd.Context(), a.store, a.userID())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "LEAF\tLEVEL 1\tLEVEL 2\tLEVEL 3\tAPP\tTYPE\tFIX/VAR")
			for _, leaf := range idx.Leaves() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					leaf.LeafID, leaf.Category1, leaf.Category2, leaf.Category3,
					leaf.AppCategoryName, leaf.TypeDefault, leaf.FixVarDefault)
			}
			return w.Flush()
		},
	}
}
