package bank

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrEmptyAmount is returned when an amount cell is blank.
	ErrEmptyAmount = errors.New("empty amount")
	// ErrInvalidDate is returned when a date cell does not match any accepted layout.
	ErrInvalidDate = errors.New("invalid date")
)

var amountNoise = strings.NewReplacer(" ", "", "\u00a0", "", "€", "", "$", "", "£", "", "EUR", "")

// ParseEUAmount parses an amount written with a decimal comma such as
// "-1.234,56". A value with a single dot and no comma is read as a decimal
// point unless the dot separates a three-digit group.
func ParseEUAmount(s string) (decimal.Decimal, error) {
	clean := amountNoise.Replace(strings.TrimSpace(s))
	if clean == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	switch {
	case strings.Contains(clean, ","):
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.Replace(clean, ",", ".", 1)
	case strings.Count(clean, ".") > 1:
		clean = strings.ReplaceAll(clean, ".", "")
	case strings.Contains(clean, "."):
		if frac := clean[strings.LastIndex(clean, ".")+1:]; len(frac) == 3 {
			clean = strings.ReplaceAll(clean, ".", "")
		}
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	return d, nil
}

// ParseDottedDate parses dd.mm.yy or dd.mm.yyyy. Two-digit years are in the 2000s.
func ParseDottedDate(s string) (time.Time, error) {
	return parseDayMonthYear(s, ".")
}

// ParseSlashedDate parses dd/mm/yyyy, also accepting the dotted form.
func ParseSlashedDate(s string) (time.Time, error) {
	if strings.Contains(s, ".") {
		return parseDayMonthYear(s, ".")
	}
	return parseDayMonthYear(s, "/")
}

func parseDayMonthYear(s, sep string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), sep)
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	day, errD := strconv.Atoi(parts[0])
	month, errM := strconv.Atoi(parts[1])
	year, errY := strconv.Atoi(parts[2])
	if errD != nil || errM != nil || errY != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	switch len(parts[2]) {
	case 2:
		year += 2000
	case 4:
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}
