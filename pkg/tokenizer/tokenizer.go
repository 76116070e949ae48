package tokenizer

import (
	"strings"
)

// CountWords returns the number of whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// TruncateWords collapses whitespace and keeps at most n words. When words
// were dropped the result ends with "..." and truncated is true.
func TruncateWords(text string, n int) (out string, truncated bool) {
	words := strings.Fields(text)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " "), false
	}
	return strings.Join(words[:n], " ") + "...", true
}
