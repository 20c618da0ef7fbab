// Package wordsub replaces standalone words in text.
//
// An occurrence is standalone when the characters on both sides are not
// word characters (Unicode letters, marks, digits and '_'), or it touches
// the start or end of the text. "para" in "para mi" is standalone; in
// "reparar" or "paraíso" it is not. Matching is case-sensitive: "para" and
// "Para" are separate pairs.
package wordsub

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tatoclean/bundlekit/bundle"
)

// Pair replaces From with To.
type Pair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// ParsePair parses "from=to".
func ParsePair(s string) (Pair, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok {
		return Pair{}, fmt.Errorf("pair %q: want from=to", s)
	}
	return Pair{From: from, To: to}, nil
}

func (p Pair) String() string {
	return p.From + "=" + p.To
}

// Substituter applies a fixed list of pairs in order.
type Substituter struct {
	pairs []Pair
}

// New validates pairs and returns a Substituter. Pairs must have a
// non-empty, unique From, no From may occur as a standalone word inside
// another pair's From, and no To may contain the From of a later pair.
func New(pairs []Pair) (*Substituter, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no replacement pairs")
	}
	seen := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		if p.From == "" {
			return nil, fmt.Errorf("pair %q: empty word", p.String())
		}
		if seen[p.From] {
			return nil, fmt.Errorf("duplicate word %q", p.From)
		}
		seen[p.From] = true
	}
	for i, a := range pairs {
		for j, b := range pairs {
			if i != j && count(a.From, b.From) > 0 {
				return nil, fmt.Errorf("words %q and %q overlap", a.From, b.From)
			}
			// Pairs run in order, so a later pair must not rewrite an
			// earlier replacement.
			if i < j && count(a.To, b.From) > 0 {
				return nil, fmt.Errorf("replacement %q of %q contains %q, replaced by a later pair", a.To, a.From, b.From)
			}
		}
	}

	s := &Substituter{pairs: make([]Pair, len(pairs))}
	copy(s.pairs, pairs)
	return s, nil
}

// Pairs returns the configured pairs.
func (s *Substituter) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Count returns, per pair, the number of standalone occurrences in text.
func (s *Substituter) Count(text string) []int {
	counts := make([]int, len(s.pairs))
	for i, p := range s.pairs {
		counts[i] = count(text, p.From)
	}
	return counts
}

// Replace applies every pair to text in order and returns the result and
// the number of replacements made.
func (s *Substituter) Replace(text string) (string, int) {
	total := 0
	for _, p := range s.pairs {
		var n int
		text, n = replace(text, p.From, p.To)
		total += n
	}
	return text, total
}

// Report holds per-pair occurrence counts.
type Report struct {
	Pairs  []Pair
	Counts []int
}

// Total returns the sum of all counts.
func (r Report) Total() int {
	n := 0
	for _, c := range r.Counts {
		n += c
	}
	return n
}

// CountBundle counts standalone occurrences across every string value of b.
// Keys are not searched.
func (s *Substituter) CountBundle(b *bundle.Object) Report {
	r := Report{Pairs: s.Pairs(), Counts: make([]int, len(s.pairs))}
	for _, leaf := range b.Leaves() {
		for i, c := range s.Count(leaf.Value) {
			r.Counts[i] += c
		}
	}
	return r
}

// ApplyBundle counts occurrences in b and, when there is at least one,
// rewrites the string values in place. The returned report holds the
// counts taken before any change.
func (s *Substituter) ApplyBundle(b *bundle.Object) Report {
	r := s.CountBundle(b)
	if r.Total() == 0 {
		return r
	}
	b.ReplaceStrings(func(v string) string {
		out, _ := s.Replace(v)
		return out
	})
	return r
}

// ---------------------------------------------------------------------------
// Matching
// ---------------------------------------------------------------------------

func isWordRune(r rune) bool {
	return r == '_' || unicode.In(r, unicode.L, unicode.M, unicode.N)
}

// standalone reports whether text[start:end] has word boundaries on both
// sides.
func standalone(text string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(r) {
			return false
		}
	}
	if end < len(text) {
		r, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(r) {
			return false
		}
	}
	return true
}

// matches returns the start offsets of non-overlapping standalone
// occurrences of word in text, scanning left to right.
func matches(text, word string) []int {
	var out []int
	pos := 0
	for pos <= len(text)-len(word) {
		i := strings.Index(text[pos:], word)
		if i < 0 {
			break
		}
		start := pos + i
		end := start + len(word)
		if standalone(text, start, end) {
			out = append(out, start)
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + size
	}
	return out
}

func count(text, word string) int {
	return len(matches(text, word))
}

func replace(text, from, to string) (string, int) {
	idx := matches(text, from)
	if len(idx) == 0 {
		return text, 0
	}

	var b strings.Builder
	b.Grow(len(text) + len(idx)*(len(to)-len(from)))
	last := 0
	for _, start := range idx {
		b.WriteString(text[last:start])
		b.WriteString(to)
		last = start + len(from)
	}
	b.WriteString(text[last:])
	return b.String(), len(idx)
}
