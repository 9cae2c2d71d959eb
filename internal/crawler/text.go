package crawler

import (
	"math"
	"strings"
	"unicode"
)

// Bounds for excerpt extraction.
const (
	// ExcerptLimit caps the body excerpt length in runes.
	ExcerptLimit = 800

	// FirstParagraphLimit caps the first-paragraph length in runes.
	FirstParagraphLimit = 400

	// ellipsis marks a truncated excerpt.
	ellipsis = "…"
)

// WordCount counts tokens in text the way the audit pipeline defines
// them: a token is either a maximal run of Unicode letters/marks
// (dashes and apostrophes allowed inside the run), or a standalone run
// of digits. This is deliberately not whitespace splitting, so CJK
// punctuation, HTML entity leftovers, and symbol soup don't inflate
// counts.
func WordCount(text string) int {
	count := 0
	inWord := false
	inNumber := false
	wordHasLetter := false

	flush := func() {
		if inWord && wordHasLetter {
			count++
		}
		if inNumber {
			count++
		}
		inWord, inNumber, wordHasLetter = false, false, false
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsMark(r):
			if inNumber {
				flush()
			}
			inWord = true
			wordHasLetter = true
		case r == '-' || r == '\'' || r == '’':
			// Joiners only count inside a word run.
			if inNumber {
				flush()
			}
			if !inWord {
				flush()
			}
		case unicode.IsDigit(r):
			if inWord {
				flush()
			}
			inNumber = true
		default:
			flush()
		}
	}
	flush()

	return count
}

// TextRatio computes visible-text length divided by raw HTML byte
// length, rounded to four decimals. Returns 0 when the HTML is empty.
func TextRatio(textLen, htmlLen int) float64 {
	if htmlLen == 0 {
		return 0
	}
	return math.Round(float64(textLen)/float64(htmlLen)*10000) / 10000
}

// NormalizeWhitespace collapses all whitespace runs to single spaces and
// trims the result. Extracted text is normalized before any excerpting
// so that markup line breaks don't leak into prose.
func NormalizeWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Excerpt returns a bounded excerpt of text, at most limit runes plus
// one for the ellipsis marker. The cut prefers, in order: the last
// sentence boundary ('.', '!', '?') inside the window, the last whole
// word boundary, and finally a hard cut. Input at or under the limit is
// returned whitespace-normalized and unmarked.
func Excerpt(text string, limit int) string {
	text = NormalizeWhitespace(text)
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}

	window := runes[:limit]

	// Prefer the last sentence boundary in the window.
	for i := len(window) - 1; i >= 0; i-- {
		if window[i] == '.' || window[i] == '!' || window[i] == '?' {
			return strings.TrimSpace(string(window[:i+1]))
		}
	}

	// Fall back to the last whole-word boundary.
	for i := len(window) - 1; i >= 0; i-- {
		if unicode.IsSpace(window[i]) {
			return strings.TrimSpace(string(window[:i])) + ellipsis
		}
	}

	// Hard cut with a marker.
	return string(window) + ellipsis
}
