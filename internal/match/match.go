// Package match links CRM records to registry records in four prioritized
// passes and resolves the candidates into a strict one-to-one assignment.
package match

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/sells-group/leadmatch/internal/model"
	"github.com/sells-group/leadmatch/internal/normalize"
)

// Matcher runs the multi-pass match. It holds no per-run state.
type Matcher struct {
	norm *normalize.Normalizer
}

// New creates a Matcher using norm to derive name forms.
func New(norm *normalize.Normalizer) *Matcher {
	if norm == nil {
		norm = normalize.New(nil, nil)
	}
	return &Matcher{norm: norm}
}

// Stats counts candidates and claims per method.
type Stats struct {
	Candidates map[model.MatchMethod]int `json:"candidates"`
	Claimed    map[model.MatchMethod]int `json:"claimed"`
}

// Result is the output of one Match call.
type Result struct {
	Pairs []model.MatchedPair
	Stats Stats
}

// Match normalizes both sides, indexes the registry, runs the four joins and
// resolves them. Unclaimed source records are dropped.
func (m *Matcher) Match(sources []model.SourceRecord, registry []model.RegistryRecord) *Result {
	log := zap.L().With(zap.String("component", "matcher"))

	src := make([]model.SourceRecord, len(sources))
	for i, s := range sources {
		s.Forms = m.norm.Forms(s.Name)
		src[i] = s
	}
	reg := make([]model.RegistryRecord, len(registry))
	for i, r := range registry {
		r.Forms = m.norm.Forms(r.Name)
		reg[i] = r
	}

	ix := BuildIndex(reg)
	cands := Candidates(src, ix)

	stats := Stats{
		Candidates: make(map[model.MatchMethod]int, len(model.AllMethods)),
		Claimed:    make(map[model.MatchMethod]int, len(model.AllMethods)),
	}
	for _, c := range cands {
		stats.Candidates[c.Method]++
	}
	for i, method := range model.AllMethods {
		log.Debug(fmt.Sprintf("match pass %d/%d: %s", i+1, len(model.AllMethods), method),
			zap.Int("keys", ix.Keys(method)),
			zap.Int("candidates", stats.Candidates[method]),
		)
	}

	pairs := Resolve(cands)
	for _, p := range pairs {
		stats.Claimed[p.Method]++
	}

	log.Info("match complete",
		zap.Int("sources", len(src)),
		zap.Int("registry", len(reg)),
		zap.Int("candidates", len(cands)),
		zap.Int("matched", len(pairs)),
	)

	return &Result{Pairs: pairs, Stats: stats}
}

// Candidates runs one inner equi-join per method in priority order. Within a
// method, candidates follow source order, then registry order. Empty keys
// never join.
func Candidates(sources []model.SourceRecord, ix *Index) []model.MatchCandidate {
	var out []model.MatchCandidate
	for _, method := range model.AllMethods {
		for _, s := range sources {
			key := sourceKey(method, s)
			if key == "" {
				continue
			}
			for _, r := range ix.Lookup(method, key) {
				out = append(out, model.MatchCandidate{Source: s, Registry: r, Method: method})
			}
		}
	}
	return out
}

// Resolve claims candidates greedily in ascending priority. A candidate is
// accepted only when neither its source ID nor its registry key has been
// claimed; ties within a priority keep their input order.
func Resolve(cands []model.MatchCandidate) []model.MatchedPair {
	sorted := make([]model.MatchCandidate, len(cands))
	copy(sorted, cands)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Method.Priority() < sorted[j].Method.Priority()
	})

	usedSource := make(map[string]bool)
	usedRegistry := make(map[string]bool)
	var pairs []model.MatchedPair
	for _, c := range sorted {
		sk := c.Source.ID
		rk := c.Registry.Key()
		if usedSource[sk] || usedRegistry[rk] {
			continue
		}
		usedSource[sk] = true
		usedRegistry[rk] = true
		pairs = append(pairs, model.MatchedPair{
			Source:   c.Source,
			Registry: c.Registry,
			Method:   c.Method,
		})
	}
	return pairs
}

// FilterMethods hides pairs whose method is not enabled. It runs after
// resolution: excluding a method never changes which registry record won a
// contested claim, only whether the row is shown. An empty set enables all.
func FilterMethods(pairs []model.MatchedPair, enabled []model.MatchMethod) []model.MatchedPair {
	if len(enabled) == 0 {
		return pairs
	}
	on := make(map[model.MatchMethod]bool, len(enabled))
	for _, m := range enabled {
		on[m] = true
	}
	out := make([]model.MatchedPair, 0, len(pairs))
	for _, p := range pairs {
		if on[p.Method] {
			out = append(out, p)
		}
	}
	return out
}
