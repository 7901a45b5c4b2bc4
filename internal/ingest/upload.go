package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Veraticus/statement-flow/internal/bank"
	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/csvio"
	"github.com/Veraticus/statement-flow/internal/diagnostics"
	"github.com/Veraticus/statement-flow/internal/fingerprint"
	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
)

// UploadRequest is one file to ingest.
type UploadRequest struct {
	UserID   string
	Filename string
	Data     []byte
	// AllowDuplicateFile accepts a file whose bytes were uploaded before.
	// Its rows still dedup against the earlier batch.
	AllowDuplicateFile bool
}

// UploadResult describes the preview batch an upload produced.
type UploadResult struct {
	Batch  *model.IngestionBatch
	Report diagnostics.Report
}

// rawPayload is what an item keeps of its source row.
type rawPayload struct {
	Fields map[string]string `json:"fields"`
	Amount string            `json:"amount"`
	Date   string            `json:"date"`
}

// Upload parses a bank export into a preview batch. Rows that fail to parse
// are skipped and counted; rows already held by another batch of the user
// count as duplicates. A file whose format cannot be detected leaves the
// batch in error with the detected encoding, delimiter and columns.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, ErrMissingUser
	}
	if int64(len(req.Data)) > s.opts.MaxFileBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, req.Filename, len(req.Data), s.opts.MaxFileBytes)
	}

	fileHash := fingerprint.ForFile(req.Data)
	existing, err := s.store.FindBatchByFileHash(ctx, req.UserID, fileHash)
	switch {
	case err == nil && existing.Status != model.BatchError && !req.AllowDuplicateFile:
		return nil, fmt.Errorf("%w: %s matches batch %s", ErrDuplicateFile, req.Filename, existing.ID)
	case err == nil:
		fileHash = fileHash + ":" + uuid.NewString()
	case !errors.Is(err, common.ErrNotFound):
		return nil, fmt.Errorf("failed to check for duplicate file: %w", err)
	}

	batch := &model.IngestionBatch{
		UserID:       req.UserID,
		Filename:     req.Filename,
		SourceFormat: model.FormatUnknown,
		Status:       model.BatchProcessing,
		FileHash:     fileHash,
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		if errors.Is(err, common.ErrDuplicateEntry) {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFile, req.Filename)
		}
		return nil, fmt.Errorf("failed to create batch: %w", err)
	}

	slog.Info("Processing upload", "batch_id", batch.ID, "file", req.Filename, "bytes", len(req.Data))

	parsed, err := s.parse(ctx, batch, req.Data)
	if err != nil {
		return nil, s.failBatch(ctx, batch, err)
	}

	reportJSON, err := json.Marshal(parsed.report)
	if err != nil {
		return nil, s.failBatch(ctx, batch, fmt.Errorf("failed to encode diagnostics: %w", err))
	}
	batch.Diagnostics = string(reportJSON)

	parsedDuplicates := batch.Counts.Duplicates
	err = s.inTx(ctx, func(tx service.Transaction) error {
		inserted := 0
		if len(parsed.items) > 0 {
			n, err := tx.SaveItems(ctx, parsed.items)
			if err != nil {
				return err
			}
			inserted = n
		}
		batch.Counts.NewItems = inserted
		batch.Counts.Duplicates = parsedDuplicates + len(parsed.items) - inserted
		batch.Status = model.BatchPreview
		return tx.UpdateBatch(ctx, batch)
	})
	if err != nil {
		batch.Status = model.BatchProcessing
		return nil, s.failBatch(ctx, batch, fmt.Errorf("failed to store items: %w", err))
	}

	if parsed.report.HasDrift() {
		slog.Warn("Mixed formats detected in upload",
			"batch_id", batch.ID,
			"number_drift", parsed.report.Numbers.Drift,
			"date_drift", parsed.report.Dates.Drift)
	}
	slog.Info("Upload ready for preview",
		"batch_id", batch.ID,
		"format", batch.SourceFormat,
		"encoding", batch.Encoding,
		"rows", batch.Counts.RowsTotal,
		"new", batch.Counts.NewItems,
		"duplicates", batch.Counts.Duplicates,
		"skipped", batch.Counts.Skipped)

	return &UploadResult{Batch: batch, Report: parsed.report}, nil
}

type parseResult struct {
	items  []model.IngestionItem
	report diagnostics.Report
}

// parse decodes, tokenizes and maps data, filling in the detection fields
// and counts of batch.
func (s *Service) parse(ctx context.Context, batch *model.IngestionBatch, data []byte) (*parseResult, error) {
	src, err := csvio.Open(data)
	if err != nil {
		return nil, common.NewUserError("could not read file", err)
	}
	batch.Encoding = src.Encoding
	batch.Delimiter = csvio.DelimiterName(src.Delimiter)

	rows := src.Rows()
	mapper, err := s.opts.Registry.FindHeader(rows)
	if err != nil {
		var unknown *bank.UnknownFormatError
		if errors.As(err, &unknown) {
			msg := fmt.Sprintf("unrecognized bank export (encoding %s, delimiter %s, columns found [%s])",
				batch.Encoding, batch.Delimiter, strings.Join(unknown.Columns, ", "))
			return nil, common.NewUserError(msg, err)
		}
		return nil, common.NewUserError("could not read header", err)
	}
	batch.SourceFormat = mapper.Format()

	var (
		collector diagnostics.Collector
		items     []model.IngestionItem
		seen      = make(map[string]bool)
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// The tokenizer only fails on an unterminated quote, which
			// swallows the rest of the file.
			batch.Counts.RowsTotal++
			batch.Counts.Skipped++
			slog.Warn("Skipping unreadable rows", "batch_id", batch.ID, "line", rows.Line(), "error", err)
			break
		}
		batch.Counts.RowsTotal++

		row := mapper.Map(rec)
		rawAmount, rawDate := row.RawValues()
		collector.Add(rawAmount, rawDate, row.Fields())

		parsedRow, err := row.Parse()
		if err != nil {
			batch.Counts.Skipped++
			slog.Debug("Skipping row", "error", &bank.RowError{Err: err, Line: rows.Line(), Format: row.Format()})
			continue
		}

		fp := fingerprint.ForRow(parsedRow)
		if seen[fp] {
			batch.Counts.Duplicates++
			continue
		}
		seen[fp] = true

		exists, err := s.store.FingerprintExists(ctx, batch.UserID, fp, batch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check fingerprint: %w", err)
		}
		if exists {
			batch.Counts.Duplicates++
			continue
		}

		raw, err := json.Marshal(rawPayload{Fields: row.Fields(), Amount: rawAmount, Date: rawDate})
		if err != nil {
			return nil, fmt.Errorf("failed to encode row %d: %w", rows.Line(), err)
		}
		parsedJSON, err := json.Marshal(parsedRow)
		if err != nil {
			return nil, fmt.Errorf("failed to encode row %d: %w", rows.Line(), err)
		}
		items = append(items, model.IngestionItem{
			BatchID:       batch.ID,
			Fingerprint:   fp,
			RowNumber:     rows.Line(),
			RawPayload:    string(raw),
			ParsedPayload: string(parsedJSON),
			Status:        model.ItemPending,
		})
	}

	if batch.Counts.RowsTotal == 0 {
		return nil, common.NewUserError(
			fmt.Sprintf("%s export has a header but no rows", batch.SourceFormat.Label()), common.ErrNoRows)
	}

	return &parseResult{items: items, report: collector.Report()}, nil
}

// failBatch moves batch to error and returns cause. A cancelled commit
// leaves its preview batch as it is; a cancelled upload still fails its
// processing batch so the file can be uploaded again.
func (s *Service) failBatch(ctx context.Context, batch *model.IngestionBatch, cause error) error {
	if isCancellation(cause) && batch.Status != model.BatchProcessing {
		return cause
	}
	if !batch.Status.CanTransition(model.BatchError) {
		return cause
	}

	batch.Status = model.BatchError
	batch.Error = cause.Error()
	if err := s.store.UpdateBatch(context.WithoutCancel(ctx), batch); err != nil {
		slog.Error("Failed to mark batch as failed", "batch_id", batch.ID, "error", err)
	}
	slog.Warn("Batch failed", "batch_id", batch.ID, "error", cause)
	return cause
}
