package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/statement-flow/internal/cli"
	"github.com/Veraticus/statement-flow/internal/ingest"
)

func uploadCmd() *cobra.Command {
	var (
		allowDuplicate bool
		commit         bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Stage bank CSV exports as preview batches",
		Long: `Parse one or more bank exports into preview batches.

Each file becomes its own batch. Rows already present in earlier batches
are counted as duplicates and not staged again. Files are processed
concurrently, bounded by ingest.max_parallel_files.`,
		Example: `  flow upload ~/Downloads/umsaetze-2024-03.csv
  flow upload --commit exports/*.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			results, err := uploadFiles(cmd.Context(), a, args, allowDuplicate)
			out := cmd.OutOrStdout()
			for _, r := range results {
				printUpload(out, r)
			}
			if err != nil {
				return err
			}

			if !commit {
				return nil
			}
			for _, r := range results {
				if r.result == nil {
					continue
				}
				res, err := a.svc.Commit(cmd.Context(), a.userID(), r.result.Batch.ID)
				if err != nil {
					return err
				}
				printCommit(out, res)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&allowDuplicate, "allow-duplicate", false, "stage a file even if identical bytes were uploaded before")
	cmd.Flags().BoolVar(&commit, "commit", false, "commit each batch right after staging it")

	return cmd
}

type fileUpload struct {
	result *ingest.UploadResult
	err    error
	path   string
}

// uploadFiles stages every path, at most max_parallel_files at a time.
// Duplicate files are reported per file and do not fail the run; any
// other error is returned after all files were attempted.
func uploadFiles(ctx context.Context, a *app, paths []string, allowDuplicate bool) ([]fileUpload, error) {
	results := make([]fileUpload, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Ingest.MaxParallelFiles)

	var (
		mu       sync.Mutex
		firstErr error
	)
	for i, path := range paths {
		g.Go(func() error {
			data, err := os.ReadFile(path)
			if err == nil {
				var res *ingest.UploadResult
				res, err = a.svc.Upload(ctx, ingest.UploadRequest{
					UserID:             a.userID(),
					Filename:           filepath.Base(path),
					Data:               data,
					AllowDuplicateFile: allowDuplicate,
				})
				results[i].result = res
			}
			results[i].path = path
			results[i].err = err

			if err != nil && !errors.Is(err, ingest.ErrDuplicateFile) {
				slog.Error("Upload failed", "file", path, "error", err)
				mu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("%s: %w", path, err)
				}
				mu.Unlock()
			}
			// Keep going with the other files.
			return nil
		})
	}
	_ = g.Wait()

	return results, firstErr
}

func printUpload(w io.Writer, r fileUpload) {
	name := filepath.Base(r.path)
	if r.err != nil {
		if errors.Is(r.err, ingest.ErrDuplicateFile) {
			fmt.Fprintln(w, cli.FormatWarning(fmt.Sprintf("%s skipped: %v", name, r.err)))
			return
		}
		fmt.Fprintln(w, cli.FormatError(fmt.Sprintf("%s failed: %v", name, r.err)))
		return
	}

	b := r.result.Batch
	fmt.Fprintln(w, cli.FormatSuccess(fmt.Sprintf("%s staged as batch %s", name, b.ID)))
	fmt.Fprintf(w, "  format %s, encoding %s, delimiter %s\n", b.SourceFormat, b.Encoding, b.Delimiter)
	fmt.Fprintf(w, "  rows %d, new %d, duplicates %d, skipped %d\n",
		b.Counts.RowsTotal, b.Counts.NewItems, b.Counts.Duplicates, b.Counts.Skipped)
	if r.result.Report.HasDrift() {
		fmt.Fprintln(w, "  "+cli.FormatWarning("mixed number or date formats; run flow diagnose "+b.ID))
	}
}
