package dedup

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// urlPattern matches http(s) links up to the next whitespace rune, including unicode spaces.
var urlPattern = regexp.MustCompile(`https?://[^\t\n\v\f\r\x{1c}-\x{1f}\x{85}\p{Z}]+`)

// Normalize canonicalizes text for similarity comparison: lowercase, no links,
// only word characters and single spaces, trimmed.
func Normalize(text string) string {
	lowered := cases.Lower(language.Und).String(text)
	stripped := urlPattern.ReplaceAllString(lowered, "")

	var sb strings.Builder

	sb.Grow(len(stripped))

	pendingSpace := false

	for _, r := range stripped {
		switch {
		case isSpace(r):
			pendingSpace = true
		case isWord(r):
			if pendingSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
			}

			pendingSpace = false

			sb.WriteRune(r)
		}
	}

	return sb.String()
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isSpace(r rune) bool {
	return unicode.IsSpace(r) || (r >= 0x1c && r <= 0x1f)
}
