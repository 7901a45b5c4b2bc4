package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Veraticus/statement-flow/internal/diagnostics"
)

// Diagnose returns the drift report of a batch. Batches that predate stored
// diagnostics are analyzed again from their raw payloads.
func (s *Service) Diagnose(ctx context.Context, userID, batchID string) (diagnostics.Report, error) {
	batch, err := s.store.GetBatch(ctx, userID, batchID)
	if err != nil {
		return diagnostics.Report{}, fmt.Errorf("failed to load batch %s: %w", batchID, err)
	}

	if batch.Diagnostics != "" {
		var report diagnostics.Report
		if err := json.Unmarshal([]byte(batch.Diagnostics), &report); err == nil {
			return report, nil
		}
	}

	items, err := s.store.ListItems(ctx, batchID, "")
	if err != nil {
		return diagnostics.Report{}, fmt.Errorf("failed to load items: %w", err)
	}
	var collector diagnostics.Collector
	for _, item := range items {
		var raw rawPayload
		if err := json.Unmarshal([]byte(item.RawPayload), &raw); err != nil {
			continue
		}
		collector.Add(raw.Amount, raw.Date, raw.Fields)
	}
	return collector.Report(), nil
}
