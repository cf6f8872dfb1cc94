package extractor

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Term is one piece of a field grammar. Terms compose into a regular
// expression; every grammar is matched case-insensitively between word
// boundaries.
type Term interface {
	expr() string
}

type literal string

func (l literal) expr() string { return regexp.QuoteMeta(string(l)) }

type alternatives []Term

func (a alternatives) expr() string {
	parts := make([]string, len(a))
	for i, t := range a {
		parts[i] = t.expr()
	}
	return "(?:" + strings.Join(parts, "|") + ")"
}

type sequence []Term

func (s sequence) expr() string {
	var b strings.Builder
	for _, t := range s {
		b.WriteString(t.expr())
	}
	return b.String()
}

type optional struct{ t Term }

func (o optional) expr() string { return "(?:" + o.t.expr() + ")?" }

type raw string

func (r raw) expr() string { return string(r) }

// Word matches one literal word.
func Word(w string) Term { return literal(w) }

// OneOf matches any of the given words, preferring earlier ones.
func OneOf(words ...string) Term {
	a := make(alternatives, len(words))
	for i, w := range words {
		a[i] = literal(w)
	}
	return a
}

// Either matches any of the given terms, preferring earlier ones.
func Either(terms ...Term) Term { return alternatives(terms) }

// Seq matches the terms one after another with nothing in between.
func Seq(terms ...Term) Term { return sequence(terms) }

// Opt makes a term optional.
func Opt(t Term) Term { return optional{t: t} }

// Integer matches a run of decimal digits of any script.
func Integer() Term { return raw(`\p{Nd}+`) }

// Space matches exactly one space.
func Space() Term { return literal(" ") }

// OptSpace matches zero or one space.
func OptSpace() Term { return Opt(Space()) }

// Plural matches a word with or without a trailing "s".
func Plural(w string) Term { return raw(regexp.QuoteMeta(w) + "s?") }

// Pattern is a compiled grammar. A match may not touch a letter, digit or
// underscore of any script on either side; RE2's \b only knows ASCII, so
// the leading side is checked here and the trailing side in the expression.
// Grammars are expected to start and end on a word character.
type Pattern struct {
	re *regexp.Regexp
}

// Compile turns a grammar into a case-insensitive, word-bounded pattern.
func Compile(t Term) (*Pattern, error) {
	re, err := regexp.Compile(`(?i)(` + t.expr() + `)(?:[^\p{L}\p{N}_]|$)`)
	if err != nil {
		return nil, err
	}
	return &Pattern{re: re}, nil
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// find returns the bounds of the first bounded match at or after from.
func (p *Pattern) find(s string, from int) (int, int, bool) {
	for from <= len(s) {
		loc := p.re.FindStringSubmatchIndex(s[from:])
		if loc == nil {
			return 0, 0, false
		}
		start, end := from+loc[2], from+loc[3]
		if prev, _ := utf8.DecodeLastRuneInString(s[:start]); start == 0 || !isWordRune(prev) {
			return start, end, true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		if size == 0 {
			return 0, 0, false
		}
		from = start + size
	}
	return 0, 0, false
}

// MatchString reports whether s holds a bounded match.
func (p *Pattern) MatchString(s string) bool {
	_, _, ok := p.find(s, 0)
	return ok
}

// FindString returns the first bounded match in s, or "".
func (p *Pattern) FindString(s string) string {
	start, end, ok := p.find(s, 0)
	if !ok {
		return ""
	}
	return s[start:end]
}

// FindAllString returns up to n non-overlapping bounded matches in order;
// n < 0 means all of them.
func (p *Pattern) FindAllString(s string, n int) []string {
	var out []string
	for from := 0; n < 0 || len(out) < n; {
		start, end, ok := p.find(s, from)
		if !ok {
			break
		}
		out = append(out, s[start:end])
		if end == start {
			end++
		}
		from = end
	}
	return out
}
