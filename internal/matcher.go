package internal

import (
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Finding is one match of a pattern against one line of one file.
type Finding struct {
	Path      string
	Line      int
	PatternID int
	Text      string
}

// Matcher applies patterns to single lines.
// A Matcher holds a stateful caser and must not be shared between goroutines.
type Matcher struct {
	fold       cases.Caser
	maxTextLen int
}

func NewMatcher(maxTextLen int) *Matcher {
	if maxTextLen < 0 {
		maxTextLen = 0
	}
	return &Matcher{
		fold:       cases.Lower(language.Und),
		maxTextLen: maxTextLen,
	}
}

// Fold returns the lower-cased form of line that patterns are applied to.
func (m *Matcher) Fold(line string) string {
	return m.fold.String(line)
}

// Match reports whether p occurs anywhere in the folded line. The Path of the
// returned Finding is left for the caller to fill in.
func (m *Matcher) Match(p Pattern, lineNo int, line string) (Finding, bool) {
	folded := m.Fold(line)
	if !p.re.MatchString(folded) {
		return Finding{}, false
	}
	return Finding{
		Line:      lineNo,
		PatternID: p.ID,
		Text:      truncate(folded, m.maxTextLen),
	}, true
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
// When a multi-byte rune straddles the limit the cut backs off to the start
// of that rune, so the result can be shorter than n bytes. For ASCII input it
// is exactly s[:n].
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
