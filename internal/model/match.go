package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// MatchMethod identifies one of the four matching passes.
type MatchMethod string

const (
	MethodRegistryID   MatchMethod = "orgnr"
	MethodNameExact    MatchMethod = "name_eq"
	MethodNameNoLegal  MatchMethod = "name_no_legal_eq"
	MethodNameNoQualif MatchMethod = "name_no_qual_eq"
)

// AllMethods lists the match methods in priority order.
var AllMethods = []MatchMethod{
	MethodRegistryID,
	MethodNameExact,
	MethodNameNoLegal,
	MethodNameNoQualif,
}

var methodLabels = map[MatchMethod]string{
	MethodRegistryID:   "Org.nr",
	MethodNameExact:    "Eksakt navn",
	MethodNameNoLegal:  "Uten juridiske",
	MethodNameNoQualif: "Uten juridiske + ekstra",
}

// Priority returns the pass priority: 1 is the strongest evidence, 4 the weakest.
// Unknown methods sort after all known ones.
func (m MatchMethod) Priority() int {
	for i, known := range AllMethods {
		if m == known {
			return i + 1
		}
	}
	return len(AllMethods) + 1
}

// Label returns the human-readable label shown in exports.
func (m MatchMethod) Label() string {
	if l, ok := methodLabels[m]; ok {
		return l
	}
	return string(m)
}

// ParseMatchMethod accepts either a method key ("name_eq") or its label
// ("Eksakt navn"), case-insensitively.
func ParseMatchMethod(s string) (MatchMethod, error) {
	s = strings.TrimSpace(s)
	for _, m := range AllMethods {
		if strings.EqualFold(s, string(m)) || strings.EqualFold(s, m.Label()) {
			return m, nil
		}
	}
	return "", eris.Errorf("model: unknown match method %q", s)
}

// MatchCandidate is a pair produced by one pass, alive only during resolution.
type MatchCandidate struct {
	Source   SourceRecord
	Registry RegistryRecord
	Method   MatchMethod
}

// MatchedPair binds one source record to one registry record. Across a
// result set each source ID and each registry key appears at most once.
type MatchedPair struct {
	Source   SourceRecord   `json:"source"`
	Registry RegistryRecord `json:"registry"`
	Method   MatchMethod    `json:"method"`
}

// Priority returns the pass priority of the winning method.
func (p MatchedPair) Priority() int {
	return p.Method.Priority()
}

// RegistryID returns the identifier used for enrichment: the registry side
// when present, else the identifier carried on the source record.
func (p MatchedPair) RegistryID() string {
	if p.Registry.RegistryID != "" {
		return p.Registry.RegistryID
	}
	return p.Source.RegistryID
}
