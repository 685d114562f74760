package remote

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// isTerminator reports whether r ends a sentence. The Devanagari danda is a
// terminator alongside the Latin ones.
func isTerminator(r rune) bool {
	switch r {
	case '।', '.', '!', '?':
		return true
	}
	return false
}

// decimalPoint reports whether the '.' at byte offset i sits between two
// digits, as in "1.5".
func decimalPoint(text string, i int, prev rune) bool {
	if !unicode.IsDigit(prev) {
		return false
	}
	next, _ := utf8.DecodeRuneInString(text[i+1:])
	return unicode.IsDigit(next)
}

// sentences cuts text after every run of terminators. A decimal point is not
// a terminator. Trailing text without a terminator is kept as a last
// sentence. Results are trimmed and never empty.
func sentences(text string) []string {
	var out []string
	start := 0
	prevTerm := false
	var prev rune

	for i, r := range text {
		term := isTerminator(r) && !(r == '.' && decimalPoint(text, i, prev))
		prev = r
		if prevTerm && !term {
			if s := strings.TrimSpace(text[start:i]); s != "" {
				out = append(out, s)
			}
			start = i
		}
		prevTerm = term
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		out = append(out, s)
	}

	return out
}

// Split breaks text into chunks of at most limit characters for the remote
// service. Text within the limit comes back as the only chunk, unchanged.
// Longer text is packed sentence by sentence, joined with single spaces. A
// single sentence longer than limit is emitted whole and is never cut.
func Split(text string, limit int) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, s := range sentences(text) {
		n := utf8.RuneCountInString(s)
		if currentLen > 0 && currentLen+1+n > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(s)
		currentLen += n
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}

	return chunks
}
