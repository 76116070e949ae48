// Package chunker splits text into pieces no longer than a rune limit,
// preferring sentence and word boundaries.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Split returns text unchanged in a single piece when it fits in maxRunes.
// Otherwise it breaks on sentence ends, then spaces, then hard rune
// boundaries. Pieces are trimmed and never empty.
func Split(text string, maxRunes int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return []string{text}
	}

	var out []string
	for _, sentence := range packSentences(splitSentences(text), maxRunes) {
		for _, part := range splitRecursive(sentence, []string{" "}, maxRunes) {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// packSentences greedily joins consecutive sentences while they fit.
func packSentences(sentences []string, maxRunes int) []string {
	var out []string
	var current strings.Builder

	for _, s := range sentences {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+s) > maxRunes {
			out = append(out, current.String())
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		out = append(out, current.String())
	}
	return out
}

func splitRecursive(text string, separators []string, chunkSize int) []string {
	if utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	if len(separators) == 0 {
		var result []string
		runes := []rune(text)
		for i := 0; i < len(runes); i += chunkSize {
			end := min(i+chunkSize, len(runes))
			result = append(result, string(runes[i:end]))
		}
		return result
	}

	sep := separators[0]
	parts := strings.Split(text, sep)
	var result []string
	var current strings.Builder

	for _, part := range parts {
		if current.Len() > 0 && utf8.RuneCountInString(current.String()+sep+part) > chunkSize {
			result = append(result, splitRecursive(current.String(), separators[1:], chunkSize)...)
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
	}

	if current.Len() > 0 {
		result = append(result, splitRecursive(current.String(), separators[1:], chunkSize)...)
	}

	return result
}

func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}

	return sentences
}
