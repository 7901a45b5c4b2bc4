package csvio

import (
	"strings"
)

// Candidate delimiters in tie-break order.
var candidateDelimiters = []rune{';', ',', '\t'}

// DetectDelimiter picks the candidate that splits the first non-empty line
// into the most fields. Ties go to the earlier candidate.
func DetectDelimiter(text string) rune {
	line := firstNonEmptyLine(text)

	best := candidateDelimiters[0]
	bestCount := 0
	for _, d := range candidateDelimiters {
		if n := len(SplitLine(line, d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// DelimiterName renders a delimiter for diagnostics.
func DelimiterName(d rune) string {
	if d == '\t' {
		return "TAB"
	}
	return string(d)
}

func firstNonEmptyLine(text string) string {
	for line := range strings.Lines(text) {
		if strings.TrimSpace(line) != "" {
			return strings.TrimRight(line, "\r\n")
		}
	}
	return ""
}

// Source is decoded upload text with its detected delimiter.
type Source struct {
	*Decoded
	Delimiter rune
}

// Open decodes data and sniffs its delimiter.
func Open(data []byte) (*Source, error) {
	decoded, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return &Source{
		Decoded:   decoded,
		Delimiter: DetectDelimiter(decoded.Text),
	}, nil
}

// Rows returns a fresh Reader over the source text.
func (s *Source) Rows() *Reader {
	return NewReader(s.Text, s.Delimiter)
}
