// Package bank maps raw CSV rows from the supported bank exports into typed records.
package bank

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/statement-flow/internal/model"
)

// HeaderSearchRows bounds how far into a file the header row is looked for.
// Some exports carry account metadata lines above the header.
const HeaderSearchRows = 20

// ErrUnknownFormat is returned when no schema's required columns are present.
var ErrUnknownFormat = errors.New("unknown bank format")

// UnknownFormatError lists the columns that were seen when detection failed.
type UnknownFormatError struct {
	Columns []string
}

func (e *UnknownFormatError) Error() string {
	return fmt.Sprintf("%s: columns found [%s]", ErrUnknownFormat, strings.Join(e.Columns, ", "))
}

func (e *UnknownFormatError) Unwrap() error {
	return ErrUnknownFormat
}

// Schema describes one export layout: the columns that identify it and how
// to build a typed row from a record.
type Schema struct {
	build    func(rec Record) Row
	Format   model.BankFormat
	Required []string
}

// Matches reports whether every required column is present in the header.
func (s Schema) Matches(header []string) bool {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[CanonicalColumn(h)] = true
	}
	for _, col := range s.Required {
		if !present[CanonicalColumn(col)] {
			return false
		}
	}
	return true
}

// Registry holds the known schemas in detection order.
type Registry struct {
	schemas []Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a schema. Panics on duplicate format.
func (r *Registry) Register(s Schema) {
	for _, existing := range r.schemas {
		if existing.Format == s.Format {
			panic("duplicate schema format: " + string(s.Format))
		}
	}
	r.schemas = append(r.schemas, s)
}

// Get returns the schema for format.
func (r *Registry) Get(format model.BankFormat) (Schema, bool) {
	for _, s := range r.schemas {
		if s.Format == format {
			return s, true
		}
	}
	return Schema{}, false
}

// Detect identifies the format of a header row. Matching is by column
// presence, case-insensitive, and ignores column order and extra columns.
func (r *Registry) Detect(header []string) (model.BankFormat, error) {
	for _, s := range r.schemas {
		if s.Matches(header) {
			return s.Format, nil
		}
	}
	return model.FormatUnknown, &UnknownFormatError{Columns: cleanColumns(header)}
}

// DefaultRegistry returns a registry with all built-in schemas.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(Schema{
		Format:   model.FormatSparkasse,
		Required: []string{colAuftragskonto, colBuchungstag, colVerwendungszweck},
		build:    newSparkasseRow,
	})
	r.Register(Schema{
		Format:   model.FormatMilesAndMore,
		Required: []string{colAuthorisedOn, colProcessedOn, colPaymentType},
		build:    newMilesAndMoreRow,
	})
	r.Register(Schema{
		Format:   model.FormatAmex,
		Required: []string{colDatum, colBeschreibung, colBetrag, colKarteninhaber},
		build:    newAmexRow,
	})
	return r
}

// Detect identifies a header using the default registry.
func Detect(header []string) (model.BankFormat, error) {
	return DefaultRegistry().Detect(header)
}

// RowSource yields tokenized rows; *csvio.Reader satisfies it.
type RowSource interface {
	Next() ([]string, error)
	Line() int
}

// FindHeader reads rows from src until one is recognized as a header, looking
// at most HeaderSearchRows rows. The columns of the first row are reported
// when nothing matches.
func (r *Registry) FindHeader(src RowSource) (*Mapper, error) {
	var first []string
	for i := 0; i < HeaderSearchRows; i++ {
		row, err := src.Next()
		if err != nil {
			if first == nil {
				return nil, fmt.Errorf("failed to read header: %w", err)
			}
			break
		}
		if first == nil {
			first = row
		}
		format, detectErr := r.Detect(row)
		if detectErr == nil {
			schema, _ := r.Get(format)
			return NewMapper(schema, row), nil
		}
	}
	return nil, &UnknownFormatError{Columns: cleanColumns(first)}
}

// Mapper turns data records into typed rows for a detected schema.
type Mapper struct {
	index  map[string]int
	header []string
	schema Schema
}

// NewMapper builds a mapper for header under schema.
func NewMapper(schema Schema, header []string) *Mapper {
	index := make(map[string]int, len(header))
	for i, h := range header {
		key := CanonicalColumn(h)
		if _, seen := index[key]; !seen {
			index[key] = i
		}
	}
	return &Mapper{
		schema: schema,
		header: cleanColumns(header),
		index:  index,
	}
}

// Format returns the detected format.
func (m *Mapper) Format() model.BankFormat {
	return m.schema.Format
}

// Columns returns the cleaned header columns.
func (m *Mapper) Columns() []string {
	return m.header
}

// Map converts one data record into a typed row. Missing trailing fields read as empty.
func (m *Mapper) Map(rec []string) Row {
	return m.schema.build(Record{fields: rec, index: m.index, header: m.header})
}

// Record is a data row addressed by column name.
type Record struct {
	index  map[string]int
	fields []string
	header []string
}

// Get returns the value of column name, or "" when absent.
func (r Record) Get(name string) string {
	i, ok := r.index[CanonicalColumn(name)]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// First returns the first non-empty value among names.
func (r Record) First(names ...string) string {
	for _, n := range names {
		if v := r.Get(n); v != "" {
			return v
		}
	}
	return ""
}

// Map returns the record keyed by header column.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(r.header))
	for i, h := range r.header {
		if i < len(r.fields) {
			out[h] = r.fields[i]
		}
	}
	return out
}

// CanonicalColumn normalizes a header cell for comparison.
func CanonicalColumn(s string) string {
	return strings.ToLower(cleanColumn(s))
}

func cleanColumn(s string) string {
	s = strings.TrimPrefix(s, "\uFEFF")
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"`)
	return strings.TrimSpace(s)
}

func cleanColumns(header []string) []string {
	out := make([]string, 0, len(header))
	for _, h := range header {
		out = append(out, cleanColumn(h))
	}
	return out
}
