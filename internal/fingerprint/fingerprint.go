// Package fingerprint derives stable identities for parsed rows and uploaded files.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/Veraticus/statement-flow/internal/common"
	"github.com/Veraticus/statement-flow/internal/model"
)

const dateLayout = "2006-01-02"

// ForRow returns the fingerprint of a parsed row. Amounts are rendered with
// two decimals so 12.5 and 12.50 collide, and the description is
// case-folded with whitespace collapsed.
func ForRow(row model.ParsedRow) string {
	parts := []string{
		string(row.Source),
		strings.TrimSpace(row.Account),
		row.PaymentDate.Format(dateLayout),
		row.Amount.StringFixed(2),
		NormalizeDescription(row.KeyDesc),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ForFile hashes the raw bytes of an upload.
func ForFile(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// NormalizeDescription lower-cases s and collapses whitespace runs.
func NormalizeDescription(s string) string {
	return strings.ToLower(common.CollapseSpaces(s))
}
