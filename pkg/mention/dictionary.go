package mention

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// Entry is a name to look for.
type Entry struct {
	ID      string
	Name    string
	Aliases []string
}

// Match is one occurrence in the original text.
type Match struct {
	Start int // byte offset in the original text
	End   int // exclusive
	Text  string
	IDs   []string
}

// Dictionary scans text for every compiled surface form.
type Dictionary struct {
	ac           *ahocorasick.Automaton
	patterns     []string
	patternIndex map[string]int
	patternToIDs [][]string
}

// Compile builds a dictionary from entries. Each entry contributes its
// name, its aliases and, for multi-word latin names, the first and last
// words.
func Compile(entries []Entry) (*Dictionary, error) {
	d := &Dictionary{patternIndex: make(map[string]int)}
	for _, e := range entries {
		surfaces := append([]string{e.Name}, e.Aliases...)
		surfaces = append(surfaces, autoAliases(e.Name)...)
		for _, surface := range surfaces {
			key := Canonicalize(surface)
			if key == "" {
				continue
			}
			if idx, ok := d.patternIndex[key]; ok {
				d.patternToIDs[idx] = appendUnique(d.patternToIDs[idx], e.ID)
				continue
			}
			d.patternIndex[key] = len(d.patterns)
			d.patterns = append(d.patterns, key)
			d.patternToIDs = append(d.patternToIDs, []string{e.ID})
		}
	}
	if len(d.patterns) == 0 {
		return d, nil
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(d.patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}
	d.ac = automaton
	return d, nil
}

// Lookup returns the ids whose surface forms equal s.
func (d *Dictionary) Lookup(s string) []string {
	idx, ok := d.patternIndex[Canonicalize(s)]
	if !ok {
		return nil
	}
	return d.patternToIDs[idx]
}

// Scan returns every match in text. Latin matches must sit on word
// boundaries; CJK matches need not, since those scripts have no spaces.
func (d *Dictionary) Scan(text string) []Match {
	if d.ac == nil || text == "" {
		return nil
	}
	canon := Canonicalize(text)
	mapping := offsetMap(text)

	found := d.ac.FindAllOverlapping([]byte(canon))
	out := make([]Match, 0, len(found))
	for _, m := range found {
		if !onBoundary(canon, m.Start, m.End) {
			continue
		}
		start := mapOffset(m.Start, mapping, len(text))
		end := mapOffset(m.End, mapping, len(text))
		if start >= end || end > len(text) {
			continue
		}
		out = append(out, Match{Start: start, End: end, Text: text[start:end], IDs: d.patternToIDs[m.PatternID]})
	}
	return out
}

// Count returns how many times each id is mentioned in text.
func (d *Dictionary) Count(text string) map[string]int {
	counts := map[string]int{}
	for _, m := range d.Scan(text) {
		for _, id := range m.IDs {
			counts[id]++
		}
	}
	return counts
}

// Ranked orders ids by count descending, then id.
func Ranked(counts map[string]int) []string {
	ids := make([]string, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

func onBoundary(s string, start, end int) bool {
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(s[:start])
		first, _ := utf8.DecodeRuneInString(s[start:])
		if isWord(before) && isWord(first) {
			return false
		}
	}
	if end < len(s) {
		last, _ := utf8.DecodeLastRuneInString(s[:end])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if isWord(last) && isWord(after) {
			return false
		}
	}
	return true
}

func isWord(r rune) bool {
	return (unicode.IsLetter(r) || unicode.IsDigit(r)) && !isCJK(r)
}

func autoAliases(name string) []string {
	words := strings.Fields(Canonicalize(name))
	if len(words) <= 1 {
		return nil
	}
	var kept []string
	for _, w := range words {
		if !english.Contains(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) <= 1 {
		return nil
	}
	first, last := kept[0], kept[len(kept)-1]
	var out []string
	if utf8.RuneCountInString(last) >= 3 {
		out = append(out, last)
	}
	if utf8.RuneCountInString(first) >= 4 && first != last {
		out = append(out, first)
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, s := range ids {
		if s == id {
			return ids
		}
	}
	return append(ids, id)
}
