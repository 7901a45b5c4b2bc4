// Package diagnostics reports locale and date-format drift within an upload.
package diagnostics

import (
	"regexp"
	"strings"
)

// NumberLocale is the decimal convention an amount appears to use.
type NumberLocale string

// Number locales.
const (
	LocaleEU        NumberLocale = "eu"
	LocaleUS        NumberLocale = "us"
	LocaleAmbiguous NumberLocale = "ambiguous"
	LocaleUnknown   NumberLocale = "unknown"
)

var numberNoise = strings.NewReplacer(" ", "", "\u00a0", "", "\t", "", "€", "", "$", "", "£", "")

// ClassifyNumberLocale guesses the locale of an amount string. When both
// separators are present the rightmost one is taken as the decimal mark.
func ClassifyNumberLocale(raw string) NumberLocale {
	s := strings.TrimSpace(raw)
	if s == "" {
		return LocaleUnknown
	}

	cleaned := numberNoise.Replace(s)
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			return LocaleEU
		}
		return LocaleUS
	case lastComma >= 0:
		return LocaleEU
	case lastDot >= 0:
		return LocaleUS
	default:
		return LocaleAmbiguous
	}
}

// NumberDrift tallies number locales over a set of amounts.
type NumberDrift struct {
	EU        int  `json:"eu"`
	US        int  `json:"us"`
	Ambiguous int  `json:"ambiguous"`
	Unknown   int  `json:"unknown"`
	Drift     bool `json:"drift"`
}

// DetectNumberLocaleDrift flags drift when both EU and US amounts occur.
func DetectNumberLocaleDrift(amounts []string) NumberDrift {
	var d NumberDrift
	for _, a := range amounts {
		switch ClassifyNumberLocale(a) {
		case LocaleEU:
			d.EU++
		case LocaleUS:
			d.US++
		case LocaleAmbiguous:
			d.Ambiguous++
		default:
			d.Unknown++
		}
	}
	d.Drift = d.EU > 0 && d.US > 0
	return d
}

// DateFormat is a recognized date layout.
type DateFormat string

// Date formats.
const (
	DateDotShortYear DateFormat = "dd.mm.yy"
	DateDotLongYear  DateFormat = "dd.mm.yyyy"
	DateSlash        DateFormat = "dd/mm/yyyy"
	DateISO          DateFormat = "yyyy-mm-dd"
	DateUnknown      DateFormat = "unknown"
)

var datePatterns = []struct {
	re     *regexp.Regexp
	format DateFormat
}{
	{regexp.MustCompile(`^\d{2}\.\d{2}\.\d{2}$`), DateDotShortYear},
	{regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`), DateDotLongYear},
	{regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`), DateSlash},
	{regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`), DateISO},
}

// ClassifyDateFormat returns the layout raw matches, or DateUnknown.
func ClassifyDateFormat(raw string) DateFormat {
	s := strings.TrimSpace(raw)
	for _, p := range datePatterns {
		if p.re.MatchString(s) {
			return p.format
		}
	}
	return DateUnknown
}

// DateDrift tallies date layouts over a set of dates.
type DateDrift struct {
	Formats       map[DateFormat]int `json:"formats"`
	DistinctKnown int                `json:"distinct_known"`
	Drift         bool               `json:"drift"`
}

// DetectDateFormatDrift flags drift when more than one known layout occurs.
func DetectDateFormatDrift(dates []string) DateDrift {
	d := DateDrift{Formats: make(map[DateFormat]int)}
	for _, raw := range dates {
		d.Formats[ClassifyDateFormat(raw)]++
	}
	for format, n := range d.Formats {
		if format != DateUnknown && n > 0 {
			d.DistinctKnown++
		}
	}
	d.Drift = d.DistinctKnown > 1
	return d
}
