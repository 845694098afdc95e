// Package normalize produces the canonical name forms used for matching.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/sells-group/leadmatch/internal/model"
)

// DefaultLegalWords lists company-type tokens stripped in the third pass.
var DefaultLegalWords = []string{
	"as", "a/s", "asa", "ab", "oy", "inc", "ltd", "llc", "gmbh", "sa", "sarl",
	"bv", "nv", "plc", "k/s", "aps", "oyj", "ag", "spa",
}

// DefaultQualifierWords lists generic business words stripped in the fourth pass.
var DefaultQualifierWords = []string{
	"group", "holding", "konsern", "international", "int", "co", "company",
	"solutions", "solution", "technology", "technologies", "systems", "system",
	"norge", "norway",
}

// DefaultAnd replaces "&" before tokenizing.
const DefaultAnd = "og"

// TokenSet is a set of case-folded tokens.
type TokenSet map[string]struct{}

// NewTokenSet builds a TokenSet, folding and trimming each word. Blank words
// are ignored.
func NewTokenSet(words ...string) TokenSet {
	set := make(TokenSet, len(words))
	for _, w := range words {
		w = fold(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// Has reports whether tok is in the set.
func (s TokenSet) Has(tok string) bool {
	_, ok := s[tok]
	return ok
}

// Normalizer derives NormalizedForms with a fixed pair of token sets.
type Normalizer struct {
	Legal      TokenSet
	Qualifiers TokenSet
	And        string
}

// New creates a Normalizer. Nil word lists fall back to the defaults.
func New(legal, qualifiers []string) *Normalizer {
	if legal == nil {
		legal = DefaultLegalWords
	}
	if qualifiers == nil {
		qualifiers = DefaultQualifierWords
	}
	return &Normalizer{
		Legal:      NewTokenSet(legal...),
		Qualifiers: NewTokenSet(qualifiers...),
		And:        DefaultAnd,
	}
}

// Forms returns all three canonical forms of name. Legal suffixes are always
// stripped before qualifiers; the two-stage call is kept so order-sensitive
// rules can be slotted in later.
func (n *Normalizer) Forms(name string) model.NormalizedForms {
	noLegal := stripTokens(name, n.Legal, n.And)
	return model.NormalizedForms{
		Raw:          Raw(name),
		NoLegal:      noLegal,
		NoQualifiers: stripTokens(noLegal, n.Qualifiers, n.And),
	}
}

// Raw trims, collapses whitespace runs to one space and case-folds.
func Raw(name string) string {
	return fold(strings.Join(strings.Fields(name), " "))
}

// StripTokens cleans name down to the allowed alphabet and drops every token
// present in set. The result is stable under re-application with the same set.
func StripTokens(name string, set TokenSet) string {
	return stripTokens(name, set, DefaultAnd)
}

func stripTokens(name string, set TokenSet, and string) string {
	if name == "" {
		return ""
	}
	name = strings.ReplaceAll(name, "&", " "+and+" ")
	name = strings.Map(func(r rune) rune {
		if allowed(r) {
			return r
		}
		return ' '
	}, name)

	toks := strings.Fields(fold(name))
	kept := toks[:0]
	for _, t := range toks {
		if !set.Has(t) {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, " ")
}

// allowed is the matching alphabet: ASCII letters and digits, the Norwegian
// letters, space and hyphen.
func allowed(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case ' ', '-', 'æ', 'ø', 'å', 'Æ', 'Ø', 'Å':
		return true
	}
	return false
}

// fold applies Unicode full case folding. A Caser is stateful, so one is
// built per call.
func fold(s string) string {
	if s == "" {
		return ""
	}
	return cases.Fold().String(s)
}
