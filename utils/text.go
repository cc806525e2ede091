package utils

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// WordCount counts whitespace-separated words after NFC normalization, so
// composed and decomposed input measure the same.
func WordCount(text string) int {
	return len(strings.Fields(norm.NFC.String(text)))
}

// TrimToWordLimit truncates text to at most limit words.
func TrimToWordLimit(text string, limit int) string {
	words := strings.Fields(norm.NFC.String(text))
	if len(words) <= limit {
		return strings.TrimSpace(norm.NFC.String(text))
	}
	return strings.Join(words[:limit], " ")
}
