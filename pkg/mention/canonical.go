// Package mention finds character names and search keywords in scenario
// text with a single Aho-Corasick automaton.
package mention

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/orsinium-labs/stopwords"
)

var english = stopwords.MustGet("en")

// isJoiner reports punctuation that stays inside names.
// "Jean-Luc", "O'Brien", "Dr. Watson".
func isJoiner(r rune) bool {
	switch r {
	case '\'', '-', '.', '_', '&', '·', '・': // middle dot, katakana middle dot
		return true
	default:
		return false
	}
}

func fold(r rune) rune {
	c := unicode.ToLower(r)
	switch c {
	case '’', '‘':
		return '\''
	case '–', '—':
		return '-'
	case '　':
		return ' '
	}
	// Full-width ASCII to half-width.
	if c >= '！' && c <= '～' {
		return unicode.ToLower(c - 0xFEE0)
	}
	return c
}

func keep(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || isJoiner(c)
}

// Canonicalize lowercases text, keeps letters, digits and joiners, and
// collapses everything else to single spaces. Patterns and scanned text
// go through the same function.
func Canonicalize(s string) string {
	var out strings.Builder
	out.Grow(len(s))

	lastWasSpace := true
	for _, ch := range s {
		c := fold(ch)
		if keep(c) {
			out.WriteRune(c)
			lastWasSpace = false
		} else if !lastWasSpace {
			out.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimSuffix(out.String(), " ")
}

// offsetMap maps each byte of Canonicalize(original) to its byte offset in
// original, plus one trailing entry for the end of the string.
func offsetMap(original string) []int {
	mapping := make([]int, 0, len(original)+1)
	lastWasSpace := true
	pos := 0
	for _, ch := range original {
		c := fold(ch)
		if keep(c) {
			for i := 0; i < utf8.RuneLen(c); i++ {
				mapping = append(mapping, pos)
			}
			lastWasSpace = false
		} else if !lastWasSpace {
			mapping = append(mapping, pos)
			lastWasSpace = true
		}
		pos += utf8.RuneLen(ch)
	}
	return append(mapping, pos)
}

func mapOffset(off int, mapping []int, originalLen int) int {
	if off < 0 {
		return 0
	}
	if off >= len(mapping) {
		return originalLen
	}
	return mapping[off]
}

// isCJK reports scripts written without spaces between words.
func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}

// Keywords splits a free-text query into search terms, dropping English
// stopwords and single-letter latin tokens. Duplicates are removed.
func Keywords(query string) []string {
	seen := map[string]bool{}
	var out []string
	for _, w := range strings.Fields(Canonicalize(query)) {
		w = strings.Trim(w, ".-_'")
		if w == "" || seen[w] || english.Contains(w) {
			continue
		}
		first, _ := utf8.DecodeRuneInString(w)
		if utf8.RuneCountInString(w) == 1 && !isCJK(first) {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
