package csvio

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Encoding names reported by Decode.
const (
	EncodingUTF8    = "utf-8"
	EncodingUTF8BOM = "utf-8-bom"
	EncodingLatin1  = "latin1"
)

// ReplacementRatioThreshold is the share of U+FFFD characters above which
// UTF-8 text is treated as mis-decoded Latin-1.
const ReplacementRatioThreshold = 0.005

// ErrEmptyInput is returned when there is nothing to decode.
var ErrEmptyInput = errors.New("empty input")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decoded is the text of an upload together with how it was read.
type Decoded struct {
	Text             string
	Encoding         string
	ReplacementRatio float64
	HadBOM           bool
}

// Decode reads raw upload bytes as UTF-8, falling back to Latin-1 when the
// bytes are not valid UTF-8 or too many replacement characters appear.
// A leading byte order mark is removed.
func Decode(data []byte) (*Decoded, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}

	body, hadBOM := bytes.CutPrefix(data, utf8BOM)

	if utf8.Valid(body) {
		text := string(body)
		ratio := replacementRatio(text)
		if ratio <= ReplacementRatioThreshold {
			enc := EncodingUTF8
			if hadBOM {
				enc = EncodingUTF8BOM
			}
			return &Decoded{
				Text:             strings.TrimPrefix(text, "\uFEFF"),
				Encoding:         enc,
				ReplacementRatio: ratio,
				HadBOM:           hadBOM,
			}, nil
		}
	}

	latin, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode latin1: %w", err)
	}

	return &Decoded{
		Text:             string(latin),
		Encoding:         EncodingLatin1,
		ReplacementRatio: replacementRatio(string(latin)),
		HadBOM:           hadBOM,
	}, nil
}

func replacementRatio(text string) float64 {
	total := utf8.RuneCountInString(text)
	if total == 0 {
		return 0
	}
	return float64(strings.Count(text, "\uFFFD")) / float64(total)
}
