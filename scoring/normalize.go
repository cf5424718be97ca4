package scoring

import (
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var asciiFolder = transform.Chain(
	norm.NFKD,
	runes.Remove(runes.In(unicode.Mn)),
	runes.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return ' '
		}
		return r
	}),
)

// FoldASCII decomposes accented and compatibility characters and maps the rest
// of the non-ASCII range to spaces, so lookalike-unicode evasions score the
// same as their plain forms.
func FoldASCII(text string) string {
	out, _, err := transform.String(asciiFolder, text)
	if err != nil {
		return text
	}
	return out
}
