package diagnostics

import (
	"strings"
)

// Report summarizes the drift found in one upload.
type Report struct {
	Dates           DateDrift   `json:"dates"`
	Numbers         NumberDrift `json:"numbers"`
	Rows            int         `json:"rows"`
	ReplacementRows int         `json:"replacement_rows"`
}

// HasDrift reports whether dates or amounts mix conventions.
func (r Report) HasDrift() bool {
	return r.Numbers.Drift || r.Dates.Drift
}

// Collector accumulates raw values while rows are parsed.
type Collector struct {
	amounts         []string
	dates           []string
	replacementRows int
}

// Add records the raw amount and date of one row and whether any of its
// fields carry a replacement character.
func (c *Collector) Add(amount, date string, fields map[string]string) {
	c.amounts = append(c.amounts, amount)
	c.dates = append(c.dates, date)
	if HasReplacementChar(fields) {
		c.replacementRows++
	}
}

// Report computes the drift report for everything added so far.
func (c *Collector) Report() Report {
	return Report{
		Numbers:         DetectNumberLocaleDrift(c.amounts),
		Dates:           DetectDateFormatDrift(c.dates),
		Rows:            len(c.amounts),
		ReplacementRows: c.replacementRows,
	}
}

// Analyze builds a report from parallel slices of raw amounts and dates.
func Analyze(amounts, dates []string) Report {
	c := &Collector{}
	for i := range amounts {
		date := ""
		if i < len(dates) {
			date = dates[i]
		}
		c.Add(amounts[i], date, nil)
	}
	return c.Report()
}

// HasReplacementChar reports whether any field contains U+FFFD.
func HasReplacementChar(fields map[string]string) bool {
	for _, v := range fields {
		if strings.ContainsRune(v, '\uFFFD') {
			return true
		}
	}
	return false
}
