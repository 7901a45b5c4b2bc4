package taxonomy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/csvio"
	"github.com/Veraticus/statement-flow/internal/model"
	"github.com/Veraticus/statement-flow/internal/pattern"
)

// Classification file columns.
const (
	ColAppCategory      = "App classificação"
	ColLevel1           = "Nível_1_PT"
	ColLevel2           = "Nível_2_PT"
	ColLevel3           = "Nível_3_PT"
	ColKeywords         = "Key_words"
	ColNegativeKeywords = "Key_words_negative"
	ColType             = "Receita/Despesa"
	ColFixVar           = "Fixo/Variável"
	ColRecurring        = "Recorrente"
)

var requiredImportColumns = []string{ColLevel1, ColLevel2, ColLevel3}

// ErrMissingColumns is returned when a classification file lacks the level columns.
var ErrMissingColumns = errors.New("classification file is missing required columns")

// ImportResult counts what a classification import touched.
type ImportResult struct {
	Rows    int
	Leaves  int
	Rules   int
	Skipped int
}

// ImportClassification reads a classification file and creates its
// taxonomy paths, app categories and keyword rules. Rows without a level-1
// category are skipped.
func ImportClassification(ctx context.Context, w Writer, userID string, data []byte) (*ImportResult, error) {
	src, err := csvio.Open(data)
	if err != nil {
		return nil, fmt.Errorf("failed to read classification file: %w", err)
	}

	rows := src.Rows()
	header, err := rows.Next()
	if err != nil {
		return nil, fmt.Errorf("failed to read classification header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[importColumnKey(h)] = i
	}
	var missing []string
	for _, col := range requiredImportColumns {
		if _, ok := index[importColumnKey(col)]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	get := func(rec []string, col string) string {
		i, ok := index[importColumnKey(col)]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	result := &ImportResult{}
	leaves := make(map[string]bool)
	for {
		rec, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return result, fmt.Errorf("line %d: %w", rows.Line(), err)
		}
		result.Rows++

		path := Path{
			Category1:        get(rec, ColLevel1),
			Category2:        get(rec, ColLevel2),
			Category3:        get(rec, ColLevel3),
			TypeDefault:      parseType(get(rec, ColType)),
			FixVarDefault:    parseFixVar(get(rec, ColFixVar)),
			RecurringDefault: parseYes(get(rec, ColRecurring)),
		}
		if path.Category1 == "" {
			result.Skipped++
			continue
		}
		if path.Category2 == "" {
			path.Category2 = path.Category1
		}
		if path.Category3 == "" {
			path.Category3 = path.Category2
		}

		leafID, err := w.EnsureTaxonomyPath(ctx, userID, path)
		if err != nil {
			return result, fmt.Errorf("line %d: %w", rows.Line(), err)
		}
		if !leaves[leafID] {
			leaves[leafID] = true
			result.Leaves++
		}

		if app := get(rec, ColAppCategory); app != "" {
			if err := w.EnsureAppCategory(ctx, userID, app, leafID); err != nil {
				return result, fmt.Errorf("line %d: %w", rows.Line(), err)
			}
		}

		keywords := get(rec, ColKeywords)
		if len(pattern.SplitKeywords(keywords)) == 0 {
			continue
		}
		rule := model.Rule{
			UserID:           userID,
			Name:             path.Category3,
			Keywords:         keywords,
			NegativeKeywords: get(rec, ColNegativeKeywords),
			LeafID:           leafID,
			Category1:        path.Category1,
			Category2:        path.Category2,
			Category3:        path.Category3,
			Type:             path.TypeDefault,
			FixVar:           path.FixVarDefault,
			Priority:         model.DefaultRulePriority,
			Active:           true,
		}
		if err := pattern.ValidateRule(rule); err != nil {
			slog.Warn("Skipping invalid rule", "line", rows.Line(), "error", err)
			continue
		}
		if err := w.SaveRule(ctx, &rule); err != nil {
			return result, fmt.Errorf("line %d: %w", rows.Line(), err)
		}
		result.Rules++
	}

	slog.Info("Imported classification",
		"user_id", userID,
		"rows", result.Rows,
		"leaves", result.Leaves,
		"rules", result.Rules,
		"skipped", result.Skipped)

	return result, nil
}

func importColumnKey(s string) string {
	return common.NormalizeForMatch(strings.Trim(strings.TrimSpace(s), `"`))
}

func parseType(s string) model.TransactionType {
	switch common.NormalizeForMatch(s) {
	case "RECEITA":
		return model.TypeIncome
	case "DESPESA":
		return model.TypeExpense
	}
	return ""
}

func parseFixVar(s string) model.FixVar {
	switch common.NormalizeForMatch(s) {
	case "FIXO":
		return model.Fixed
	case "VARIAVEL":
		return model.Variable
	}
	return ""
}

func parseYes(s string) bool {
	switch common.NormalizeForMatch(s) {
	case "SIM", "YES", "TRUE", "1", "X":
		return true
	}
	return false
}
