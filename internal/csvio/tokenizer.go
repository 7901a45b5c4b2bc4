// Package csvio decodes bank CSV exports and splits them into rows.
//
// The tokenizer is a small quote-aware state machine rather than encoding/csv:
// bank exports mix delimiters, carry stray whitespace around quoted fields and
// occasionally leave a quote unterminated on the last line, all of which the
// standard reader rejects.
package csvio

import (
	"errors"
	"io"
	"strings"
)

// ErrUnterminatedQuote is returned with the final row when the input ends inside a quoted field.
var ErrUnterminatedQuote = errors.New("unterminated quoted field")

type tokenState int

const (
	stateNormal tokenState = iota
	stateInQuotes
)

// Reader lazily splits decoded text into rows of trimmed fields.
type Reader struct {
	src     []rune
	pos     int
	line    int
	rowLine int
	delim   rune
}

// NewReader returns a Reader over text using delim as the field separator.
func NewReader(text string, delim rune) *Reader {
	return &Reader{
		src:   []rune(text),
		delim: delim,
		line:  1,
	}
}

// Line returns the 1-based line on which the most recently returned row started.
func (r *Reader) Line() int {
	return r.rowLine
}

// Next returns the next non-blank row. It returns io.EOF when the input is exhausted.
func (r *Reader) Next() ([]string, error) {
	for r.pos < len(r.src) {
		row, err := r.readRow()
		if isBlank(row) && err == nil {
			continue
		}
		return row, err
	}
	return nil, io.EOF
}

// ReadAll returns every remaining row.
func (r *Reader) ReadAll() ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return append(rows, row), err
		}
		rows = append(rows, row)
	}
}

func (r *Reader) readRow() ([]string, error) {
	r.rowLine = r.line

	var (
		fields []string
		field  strings.Builder
		state  = stateNormal
	)

	for r.pos < len(r.src) {
		c := r.src[r.pos]
		r.pos++

		switch state {
		case stateInQuotes:
			switch {
			case c == '"' && r.peek() == '"':
				field.WriteRune('"')
				r.pos++
			case c == '"':
				state = stateNormal
			default:
				if c == '\n' {
					r.line++
				}
				field.WriteRune(c)
			}

		case stateNormal:
			switch c {
			case '"':
				state = stateInQuotes
			case r.delim:
				fields = append(fields, strings.TrimSpace(field.String()))
				field.Reset()
			case '\r':
				if r.peek() == '\n' {
					r.pos++
				}
				r.line++
				return append(fields, strings.TrimSpace(field.String())), nil
			case '\n':
				r.line++
				return append(fields, strings.TrimSpace(field.String())), nil
			default:
				field.WriteRune(c)
			}
		}
	}

	fields = append(fields, strings.TrimSpace(field.String()))
	if state == stateInQuotes {
		return fields, ErrUnterminatedQuote
	}
	return fields, nil
}

func (r *Reader) peek() rune {
	if r.pos < len(r.src) {
		return r.src[r.pos]
	}
	return 0
}

func isBlank(row []string) bool {
	return len(row) == 1 && row[0] == ""
}

// SplitLine tokenizes a single line.
func SplitLine(line string, delim rune) []string {
	row, _ := NewReader(line, delim).readRow()
	return row
}
