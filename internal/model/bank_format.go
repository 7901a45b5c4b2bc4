// Package model defines the core data structures for statement ingestion and classification.
package model

// BankFormat identifies the export layout a CSV file was produced with.
type BankFormat string

// Supported export formats.
const (
	FormatSparkasse    BankFormat = "SPARKASSE"
	FormatMilesAndMore BankFormat = "MILES_AND_MORE"
	FormatAmex         BankFormat = "AMEX"
	FormatUnknown      BankFormat = "UNKNOWN"
)

// KnownFormats lists the formats the schema mapper can parse, in detection order.
var KnownFormats = []BankFormat{FormatSparkasse, FormatMilesAndMore, FormatAmex}

// IsKnown reports whether the format is one of the parseable exports.
func (f BankFormat) IsKnown() bool {
	switch f {
	case FormatSparkasse, FormatMilesAndMore, FormatAmex:
		return true
	}
	return false
}

// Label returns the short name used when tagging descriptions.
func (f BankFormat) Label() string {
	switch f {
	case FormatSparkasse:
		return "Sparkasse"
	case FormatMilesAndMore:
		return "M&M"
	case FormatAmex:
		return "Amex"
	default:
		return "Unknown"
	}
}

func (f BankFormat) String() string {
	return string(f)
}
