package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/Veraticus/statement-flow/internal/classification"
	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/csvio"
	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/service"
	"github.com/Veraticus/statement-flow/internal/testutil"
)

const sparkasseHeader = "Auftragskonto;Buchungstag;Valutadatum;Buchungstext;Verwendungszweck;Beguenstigter/Zahlungspflichtiger;Kontonummer/IBAN;Betrag;Waehrung"

const (
	reweRow    = "DE11;01.03.24;01.03.24;KARTENZAHLUNG;REWE SAGT DANKE;REWE Markt GmbH;DE99;-23,45;EUR"
	netflixRow = "DE11;02.03.24;02.03.24;LASTSCHRIFT;Monatsabo;NETFLIX INTERNATIONAL;DE88;-12,99;EUR"
	giftRow    = "DE11;03.03.24;03.03.24;GUTSCHRIFT;Geschenk;Max Mustermann;DE77;50,00;EUR"
)

func sparkasseFile(rows ...string) []byte {
	return []byte(sparkasseHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

type fixture struct {
	db        *testutil.TestDB
	svc       *Service
	groceries string
	streaming string
	leisure   string
}

// newFixture sets up a store with one strict grocery rule and two
// competing rules for NETFLIX on different leaves.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.SetupTestDB(t)

	f := &fixture{
		db:        db,
		svc:       NewService(db.Storage, Options{Classify: classification.Settings{AutoConfirm: true}}),
		groceries: db.MustPath("Mercado", "Supermercado", "Supermercado"),
		streaming: db.MustPath("Lazer", "Streaming", "Streaming"),
		leisure:   db.MustPath("Lazer", "Entretenimento", "Entretenimento"),
	}
	db.MustRule("Mercado", "REWE;EDEKA", f.groceries, 900, true)
	db.MustRule("Assinaturas", "NETFLIX;SPOTIFY", f.streaming, 570, false)
	db.MustRule("Lazer", "NETFLIX;CINEMA", f.leisure, 580, false)
	return f
}

func (f *fixture) upload(t *testing.T, name string, data []byte) *model.IngestionBatch {
	t.Helper()
	res, err := f.svc.Upload(context.Background(), UploadRequest{UserID: f.db.UserID, Filename: name, Data: data})
	require.NoError(t, err)
	return res.Batch
}

func (f *fixture) transactions(t *testing.T) []model.Transaction {
	t.Helper()
	txns, err := f.db.Storage.ListTransactions(context.Background(), service.TransactionFilter{UserID: f.db.UserID})
	require.NoError(t, err)
	return txns
}

func TestUploadCreatesPreviewBatch(t *testing.T) {
	f := newFixture(t)

	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, netflixRow, giftRow))

	assert.Equal(t, model.BatchPreview, batch.Status)
	assert.Equal(t, model.FormatSparkasse, batch.SourceFormat)
	assert.Equal(t, csvio.EncodingUTF8, batch.Encoding)
	assert.Equal(t, ";", batch.Delimiter)
	assert.Equal(t, model.BatchCounts{RowsTotal: 3, NewItems: 3}, batch.Counts)

	items, err := f.db.Storage.ListItems(context.Background(), batch.ID, model.ItemPending)
	require.NoError(t, err)
	require.Len(t, items, 3)
	for _, item := range items {
		assert.Len(t, item.Fingerprint, 64)
		assert.Contains(t, item.RawPayload, `"fields"`)
	}
}

func TestUploadDuplicates(t *testing.T) {
	ctx := context.Background()

	t.Run("identical file is rejected", func(t *testing.T) {
		f := newFixture(t)
		data := sparkasseFile(reweRow, netflixRow)
		first := f.upload(t, "giro.csv", data)

		_, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "giro-again.csv", Data: data})
		require.ErrorIs(t, err, ErrDuplicateFile)
		assert.Contains(t, err.Error(), first.ID)

		batches, err := f.db.Storage.ListBatches(ctx, f.db.UserID, 10)
		require.NoError(t, err)
		assert.Len(t, batches, 1)
	})

	t.Run("forced re-upload yields only duplicates", func(t *testing.T) {
		f := newFixture(t)
		data := sparkasseFile(reweRow, netflixRow, giftRow)
		f.upload(t, "giro.csv", data)

		res, err := f.svc.Upload(ctx, UploadRequest{
			UserID: f.db.UserID, Filename: "giro.csv", Data: data, AllowDuplicateFile: true,
		})
		require.NoError(t, err)
		assert.Equal(t, 3, res.Batch.Counts.RowsTotal)
		assert.Equal(t, 3, res.Batch.Counts.Duplicates)
		assert.Zero(t, res.Batch.Counts.NewItems)
	})

	t.Run("overlapping files share rows once", func(t *testing.T) {
		f := newFixture(t)
		f.upload(t, "march.csv", sparkasseFile(reweRow, netflixRow))

		batch := f.upload(t, "march-late.csv", sparkasseFile(netflixRow, giftRow))
		assert.Equal(t, model.BatchCounts{RowsTotal: 2, NewItems: 1, Duplicates: 1}, batch.Counts)
	})

	t.Run("repeated row within a file", func(t *testing.T) {
		f := newFixture(t)
		batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, reweRow, giftRow))
		assert.Equal(t, model.BatchCounts{RowsTotal: 3, NewItems: 2, Duplicates: 1}, batch.Counts)
	})
}

func TestUploadEncodings(t *testing.T) {
	latin1, err := charmap.ISO8859_1.NewEncoder().String(
		sparkasseHeader + "\nDE11;04.03.24;04.03.24;KARTENZAHLUNG;Br\u00f6tchen;B\u00e4ckerei M\u00fcller;DE55;-4,20;EUR\n")
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		encoding string
	}{
		{
			name:     "utf-8 with byte order mark",
			data:     append([]byte{0xEF, 0xBB, 0xBF}, sparkasseFile(reweRow)...),
			encoding: csvio.EncodingUTF8BOM,
		},
		{
			name:     "latin-1",
			data:     []byte(latin1),
			encoding: csvio.EncodingLatin1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			batch := f.upload(t, "giro.csv", tt.data)

			assert.Equal(t, tt.encoding, batch.Encoding)
			assert.Equal(t, model.FormatSparkasse, batch.SourceFormat)
			assert.Equal(t, 1, batch.Counts.NewItems)
		})
	}

	t.Run("latin-1 text is decoded", func(t *testing.T) {
		f := newFixture(t)
		batch := f.upload(t, "giro.csv", []byte(latin1))

		items, err := f.db.Storage.ListItems(context.Background(), batch.ID, "")
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Contains(t, items[0].ParsedPayload, "B\u00e4ckerei M\u00fcller")
	})
}

func TestUploadItemsIndependentOfBOMAndRowOrder(t *testing.T) {
	type stored struct {
		fingerprint string
		raw         string
		parsed      string
	}
	itemsOf := func(t *testing.T, data []byte) []stored {
		t.Helper()
		f := newFixture(t)
		batch := f.upload(t, "giro.csv", data)
		items, err := f.db.Storage.ListItems(context.Background(), batch.ID, "")
		require.NoError(t, err)
		out := make([]stored, 0, len(items))
		for _, item := range items {
			out = append(out, stored{fingerprint: item.Fingerprint, raw: item.RawPayload, parsed: item.ParsedPayload})
		}
		return out
	}

	plain := itemsOf(t, sparkasseFile(reweRow, netflixRow, giftRow))
	require.Len(t, plain, 3)

	withBOM := itemsOf(t, append([]byte{0xEF, 0xBB, 0xBF}, sparkasseFile(reweRow, netflixRow, giftRow)...))
	assert.Equal(t, plain, withBOM)

	shuffled := itemsOf(t, sparkasseFile(giftRow, reweRow, netflixRow))
	assert.ElementsMatch(t, plain, shuffled)
}

func TestUploadFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown format records diagnostics", func(t *testing.T) {
		f := newFixture(t)
		data := []byte("Date,Payee,Value\n2024-03-01,Shop,-1.00\n")

		_, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "other.csv", Data: data})
		require.Error(t, err)

		var userErr *common.UserError
		require.ErrorAs(t, err, &userErr)
		assert.Contains(t, userErr.UserMessage, "encoding utf-8")
		assert.Contains(t, userErr.UserMessage, "delimiter ,")
		assert.Contains(t, userErr.UserMessage, "Date, Payee, Value")

		batches, err := f.db.Storage.ListBatches(ctx, f.db.UserID, 10)
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, model.BatchError, batches[0].Status)
		assert.Contains(t, batches[0].Error, "columns found")
	})

	t.Run("failed file can be uploaded again", func(t *testing.T) {
		f := newFixture(t)
		data := []byte("Date,Payee,Value\n2024-03-01,Shop,-1.00\n")

		_, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "other.csv", Data: data})
		require.Error(t, err)
		_, err = f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "other.csv", Data: data})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateFile)
	})

	t.Run("header without rows", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "empty.csv", Data: sparkasseFile()})
		require.ErrorIs(t, err, common.ErrNoRows)
	})

	t.Run("empty file", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "empty.csv", Data: []byte("  \n")})
		require.ErrorIs(t, err, csvio.ErrEmptyInput)
	})

	t.Run("file too large", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := NewService(db.Storage, Options{MaxFileBytes: 16})
		_, err := svc.Upload(ctx, UploadRequest{UserID: db.UserID, Filename: "giro.csv", Data: sparkasseFile(reweRow)})
		require.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("missing user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Upload(ctx, UploadRequest{Filename: "giro.csv", Data: sparkasseFile(reweRow)})
		require.ErrorIs(t, err, ErrMissingUser)
	})
}

func TestUploadSkipsUnparseableRows(t *testing.T) {
	f := newFixture(t)
	bad := "DE11;31.02.24;31.02.24;KARTENZAHLUNG;x;Shop;DE1;-1,00;EUR"
	noAmount := "DE11;05.03.24;05.03.24;KARTENZAHLUNG;x;Shop;DE1;;EUR"

	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, bad, noAmount))

	assert.Equal(t, model.BatchCounts{RowsTotal: 3, NewItems: 1, Skipped: 2}, batch.Counts)
}

func TestCommitClassifiesItems(t *testing.T) {
	f := newFixture(t)
	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, netflixRow, giftRow))

	var progress []int
	res, err := f.svc.Commit(context.Background(), f.db.UserID, batch.ID, WithProgress(func(done, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, done)
	}))
	require.NoError(t, err)

	assert.Equal(t, &CommitResult{BatchID: batch.ID, Committed: 3, Matched: 1, Open: 1, Conflicts: 1}, res)
	assert.Equal(t, []int{1, 2, 3}, progress)

	stored, err := f.db.Storage.GetBatch(context.Background(), f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCommitted, stored.Status)

	pending, err := f.db.Storage.ListItems(context.Background(), batch.ID, model.ItemPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	txns := f.transactions(t)
	require.Len(t, txns, 3)

	rewe, netflix, gift := txns[0], txns[1], txns[2]

	assert.Equal(t, f.groceries, rewe.LeafID)
	assert.Equal(t, "Mercado", rewe.Category1)
	assert.Equal(t, 100, rewe.Confidence)
	assert.False(t, rewe.NeedsReview)
	assert.Equal(t, "REWE", rewe.MatchedKeyword)
	assert.Equal(t, model.TypeExpense, rewe.Type)
	assert.Equal(t, model.Variable, rewe.FixVar)
	assert.True(t, decimal.RequireFromString("-23.45").Equal(rewe.Amount))
	assert.Equal(t, batch.ID, rewe.BatchID)

	assert.True(t, netflix.ConflictFlag)
	assert.True(t, netflix.NeedsReview)
	assert.Equal(t, model.OpenCategory, netflix.Category1)
	require.Len(t, netflix.Candidates, 2)
	assert.Equal(t, f.leisure, netflix.Candidates[0].LeafID)
	assert.Equal(t, f.streaming, netflix.Candidates[1].LeafID)

	assert.Equal(t, model.OpenCategory, gift.Category3)
	assert.True(t, gift.NeedsReview)
	assert.False(t, gift.ConflictFlag)
	assert.Zero(t, gift.Confidence)
	assert.Equal(t, model.TypeIncome, gift.Type)
}

func TestCommitInternalTransfer(t *testing.T) {
	f := newFixture(t)
	f.db.MustSeedSystemRules()
	row := "DE11;06.03.24;06.03.24;LASTSCHRIFT;Abrechnung;AMERICAN EXPRESS EUROPE;DE12;-310,00;EUR"
	batch := f.upload(t, "giro.csv", sparkasseFile(row))

	_, err := f.svc.Commit(context.Background(), f.db.UserID, batch.ID)
	require.NoError(t, err)

	txns := f.transactions(t)
	require.Len(t, txns, 1)
	assert.Equal(t, model.InternalCategory, txns[0].Category1)
	assert.True(t, txns[0].InternalTransfer)
	assert.True(t, txns[0].ExcludeFromBudget)
	assert.Equal(t, model.Fixed, txns[0].FixVar)
}

func TestCommitRequiresPreview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow))

	_, err := f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)

	_, err = f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.ErrorIs(t, err, ErrInvalidBatchState)

	_, err = f.svc.Commit(ctx, "someone-else", batch.ID)
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestCommitSkipsExistingKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, giftRow))

	items, err := f.db.Storage.ListItems(ctx, batch.ID, "")
	require.NoError(t, err)
	require.Len(t, items, 2)

	existing := &model.Transaction{
		UserID:      f.db.UserID,
		Key:         items[0].Fingerprint,
		PaymentDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Amount:      decimal.RequireFromString("-23.45"),
		LeafID:      f.groceries,
		BatchID:     "manual",
	}
	inserted, err := f.db.Storage.InsertTransaction(ctx, existing)
	require.NoError(t, err)
	require.True(t, inserted)

	res, err := f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Committed)
	assert.Equal(t, 1, res.SkippedExisting)

	links, err := f.db.Storage.ListBatchEvidence(ctx, batch.ID)
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestCommitCancelledKeepsPreview(t *testing.T) {
	f := newFixture(t)
	batch := f.upload(t, "giro.csv", sparkasseFile(reweRow, giftRow))

	ctx, cancel := context.WithCancel(context.Background())
	_, err := f.svc.Commit(ctx, f.db.UserID, batch.ID, WithProgress(func(done, _ int) {
		if done == 1 {
			cancel()
		}
	}))
	require.ErrorIs(t, err, context.Canceled)

	stored, err := f.db.Storage.GetBatch(context.Background(), f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchPreview, stored.Status)
	assert.Empty(t, f.transactions(t))
}

func TestRollback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	keep := f.upload(t, "feb.csv", sparkasseFile(giftRow))
	_, err := f.svc.Commit(ctx, f.db.UserID, keep.ID)
	require.NoError(t, err)

	batch := f.upload(t, "march.csv", sparkasseFile(reweRow, netflixRow))
	_, err = f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)
	require.Len(t, f.transactions(t), 3)

	res, err := f.svc.Rollback(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, &RollbackResult{BatchID: batch.ID, TransactionsDeleted: 2, LinksDeleted: 2, ItemsReset: 2}, res)

	txns := f.transactions(t)
	require.Len(t, txns, 1)
	assert.Equal(t, keep.ID, txns[0].BatchID)

	stored, err := f.db.Storage.GetBatch(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchPreview, stored.Status)

	pending, err := f.db.Storage.ListItems(ctx, batch.ID, model.ItemPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	_, err = f.svc.Rollback(ctx, f.db.UserID, batch.ID)
	require.ErrorIs(t, err, ErrInvalidBatchState)

	again, err := f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Committed)
	assert.Len(t, f.transactions(t), 3)
}

func TestRollbackIntegrityAbort(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.upload(t, "a.csv", sparkasseFile(reweRow))
	_, err := f.svc.Commit(ctx, f.db.UserID, a.ID)
	require.NoError(t, err)
	b := f.upload(t, "b.csv", sparkasseFile(giftRow))
	_, err = f.svc.Commit(ctx, f.db.UserID, b.ID)
	require.NoError(t, err)

	itemsA, err := f.db.Storage.ListItems(ctx, a.ID, "")
	require.NoError(t, err)
	linksB, err := f.db.Storage.ListBatchEvidence(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, linksB, 1)

	// Point an item of batch a at a transaction that came from batch b.
	require.NoError(t, f.db.Storage.SaveEvidenceLink(ctx, model.EvidenceLink{
		TransactionID:   linksB[0].TransactionID,
		IngestionItemID: itemsA[0].ID,
	}))

	_, err = f.svc.Rollback(ctx, f.db.UserID, a.ID)
	require.ErrorIs(t, err, ErrRollbackIntegrity)

	assert.Len(t, f.transactions(t), 2)
	stored, err := f.db.Storage.GetBatch(ctx, f.db.UserID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCommitted, stored.Status)
}

func TestReviewAndReapply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	batch := f.upload(t, "giro.csv", sparkasseFile(netflixRow, giftRow))
	_, err := f.svc.Commit(ctx, f.db.UserID, batch.ID)
	require.NoError(t, err)

	txns := f.transactions(t)
	require.Len(t, txns, 2)
	netflix, gift := txns[0], txns[1]

	reviewed, err := f.svc.Review(ctx, f.db.UserID, netflix.ID, f.streaming)
	require.NoError(t, err)
	assert.True(t, reviewed.ManualOverride)
	assert.False(t, reviewed.NeedsReview)
	assert.False(t, reviewed.ConflictFlag)
	assert.Equal(t, "Streaming", reviewed.Category2)

	_, err = f.svc.Review(ctx, f.db.UserID, gift.ID, "no-such-leaf")
	require.ErrorIs(t, err, ErrUnknownLeaf)

	gifts := f.db.MustPath("Receitas", "Presentes", "Presentes")
	f.db.MustRule("Presentes", "MUSTERMANN", gifts, 600, false)

	res, err := f.svc.Reapply(ctx, f.db.UserID)
	require.NoError(t, err)
	assert.Equal(t, &ReapplyResult{Scanned: 1, Changed: 1, Matched: 1}, res)

	updated, err := f.db.Storage.GetTransaction(ctx, f.db.UserID, gift.ID)
	require.NoError(t, err)
	assert.Equal(t, gifts, updated.LeafID)
	assert.Equal(t, "MUSTERMANN", updated.MatchedKeyword)

	kept, err := f.db.Storage.GetTransaction(ctx, f.db.UserID, netflix.ID)
	require.NoError(t, err)
	assert.Equal(t, f.streaming, kept.LeafID)
	assert.True(t, kept.ManualOverride)

	res, err = f.svc.Reapply(ctx, f.db.UserID)
	require.NoError(t, err)
	assert.Zero(t, res.Changed)
}

func TestDiagnose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mixed := "DE11;07.03.2024;07.03.2024;KARTENZAHLUNG;x;Kiosk;DE1;-1.234,50;EUR"
	us := "DE11;08.03.24;08.03.24;KARTENZAHLUNG;y;Kiosk;DE1;-1,234.50;EUR"

	res, err := f.svc.Upload(ctx, UploadRequest{UserID: f.db.UserID, Filename: "giro.csv", Data: sparkasseFile(reweRow, mixed, us)})
	require.NoError(t, err)
	assert.True(t, res.Report.Dates.Drift)
	assert.True(t, res.Report.Numbers.Drift)
	assert.Equal(t, 3, res.Report.Rows)

	report, err := f.svc.Diagnose(ctx, f.db.UserID, res.Batch.ID)
	require.NoError(t, err)
	assert.Equal(t, res.Report.Dates.Drift, report.Dates.Drift)
	assert.Equal(t, res.Report.Numbers.EU, report.Numbers.EU)

	_, err = f.svc.Diagnose(ctx, f.db.UserID, "missing")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
