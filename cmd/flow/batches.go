package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/diagnostics"
)

func batchesCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "batches",
		Short: "List uploaded batches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			batches, err := a.store.ListBatches(cmd.Context(), a.userID(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(batches) == 0 {
				fmt.Fprintln(out, cli.SubtleStyle.Render("No batches yet. Stage a file with: flow upload <file>"))
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, cli.BoldStyle.Render("ID")+"\t"+cli.BoldStyle.Render("FILE")+"\t"+
				cli.BoldStyle.Render("FORMAT")+"\t"+cli.BoldStyle.Render("STATUS")+"\t"+
				cli.BoldStyle.Render("ROWS")+"\t"+cli.BoldStyle.Render("NEW")+"\t"+
				cli.BoldStyle.Render("DUP")+"\t"+cli.BoldStyle.Render("UPLOADED"))
			for _, b := range batches {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
					b.ID, b.Filename, b.SourceFormat, cli.FormatBatchStatus(b.Status),
					b.Counts.RowsTotal, b.Counts.NewItems, b.Counts.Duplicates,
					formatRelativeTime(b.CreatedAt))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of batches to show")

	return cmd
}

func diagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "diagnose <batch-id>",
		Short: "Show number and date format drift for a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			report, err := a.svc.Diagnose(cmd.Context(), a.userID(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func printReport(w io.Writer, r diagnostics.Report) {
	n := r.Numbers
	body := fmt.Sprintf("rows        %d\nnumbers     eu %d, us %d, ambiguous %d, unknown %d",
		r.Rows, n.EU, n.US, n.Ambiguous, n.Unknown)

	formats := make([]string, 0, len(r.Dates.Formats))
	for f := range r.Dates.Formats {
		formats = append(formats, string(f))
	}
	sort.Strings(formats)
	body += "\ndates      "
	for _, f := range formats {
		body += fmt.Sprintf(" %s %d", f, r.Dates.Formats[diagnostics.DateFormat(f)])
	}
	if r.ReplacementRows > 0 {
		body += fmt.Sprintf("\nrows with replacement characters: %d", r.ReplacementRows)
	}
	fmt.Fprintln(w, cli.RenderBox("Diagnostics", body))

	if n.Drift {
		fmt.Fprintln(w, cli.FormatWarning("Amounts mix EU and US decimal separators"))
	}
	if r.Dates.Drift {
		fmt.Fprintln(w, cli.FormatWarning("Dates use more than one layout"))
	}
	if !r.HasDrift() {
		fmt.Fprintln(w, cli.FormatSuccess("No drift detected"))
	}
}
