package features

import (
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it into runs of letters, digits and apostrophes.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}
