// Package filter narrows and orders enriched match rows.
package filter

import (
	"math"
	"sort"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadmatch/internal/model"
)

// Bounds are inclusive limits on the enriched figures. A zero bound is
// inactive. Revenue bounds are in base currency units.
type Bounds struct {
	MinEmployees int64 `yaml:"min_employees" mapstructure:"min_employees"`
	MaxEmployees int64 `yaml:"max_employees" mapstructure:"max_employees"`
	MinRevenue   int64 `yaml:"min_revenue" mapstructure:"min_revenue"`
	MaxRevenue   int64 `yaml:"max_revenue" mapstructure:"max_revenue"`
}

// Active reports whether any bound is set.
func (b Bounds) Active() bool {
	return b.MinEmployees > 0 || b.MaxEmployees > 0 || b.MinRevenue > 0 || b.MaxRevenue > 0
}

// Validate rejects negative bounds and min greater than max.
func (b Bounds) Validate() error {
	if b.MinEmployees < 0 || b.MaxEmployees < 0 || b.MinRevenue < 0 || b.MaxRevenue < 0 {
		return eris.New("filter: bounds must not be negative")
	}
	if b.MaxEmployees > 0 && b.MinEmployees > b.MaxEmployees {
		return eris.Errorf("filter: min employees %d exceeds max %d", b.MinEmployees, b.MaxEmployees)
	}
	if b.MaxRevenue > 0 && b.MinRevenue > b.MaxRevenue {
		return eris.Errorf("filter: min revenue %d exceeds max %d", b.MinRevenue, b.MaxRevenue)
	}
	return nil
}

// Keep reports whether a row with the given figures passes every active
// bound. An unknown figure fails any active bound on it.
func (b Bounds) Keep(employees, revenue *int64) bool {
	return within(employees, b.MinEmployees, b.MaxEmployees) &&
		within(revenue, b.MinRevenue, b.MaxRevenue)
}

func within(v *int64, lo, hi int64) bool {
	if lo <= 0 && hi <= 0 {
		return true
	}
	if v == nil {
		return false
	}
	if lo > 0 && *v < lo {
		return false
	}
	if hi > 0 && *v > hi {
		return false
	}
	return true
}

// Apply returns the rows that satisfy b, preserving order.
func Apply(rows []model.ResultRow, b Bounds) []model.ResultRow {
	out := make([]model.ResultRow, 0, len(rows))
	for _, r := range rows {
		if b.Keep(r.Employees, r.Revenue) {
			out = append(out, r)
		}
	}
	return out
}

// SortByRevenue orders rows by revenue descending with unknown revenue
// last. Ties keep their input order.
func SortByRevenue(rows []model.ResultRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Revenue, rows[j].Revenue
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

// MNOKToNOK converts millions of kroner to kroner.
func MNOKToNOK(mnok float64) int64 {
	return int64(math.Round(mnok * 1_000_000))
}

// NOKToMNOK converts kroner to millions of kroner.
func NOKToMNOK(nok int64) float64 {
	return float64(nok) / 1_000_000
}

// Presets are named industry code prefix sets.
var Presets = map[string][]string{
	"construction": {"41", "42", "43"},
	"retail":       {"46", "47"},
}

// Preset returns the prefixes for a named preset.
func Preset(name string) ([]string, error) {
	p, ok := Presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, eris.Errorf("filter: unknown preset %q", name)
	}
	return append([]string(nil), p...), nil
}

// IndustryPrefixes matches industry codes by prefix. An empty set matches
// every code.
type IndustryPrefixes []string

// ParseIndustryPrefixes splits a comma or space separated list.
func ParseIndustryPrefixes(s string) IndustryPrefixes {
	var out IndustryPrefixes
	for _, p := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether code starts with any prefix.
func (p IndustryPrefixes) Match(code string) bool {
	if len(p) == 0 {
		return true
	}
	code = strings.TrimSpace(code)
	for _, prefix := range p {
		if strings.HasPrefix(code, prefix) {
			return true
		}
	}
	return false
}

// FilterRegistry keeps registry records whose industry code matches p.
func FilterRegistry(records []model.RegistryRecord, p IndustryPrefixes) []model.RegistryRecord {
	if len(p) == 0 {
		return records
	}
	out := make([]model.RegistryRecord, 0, len(records))
	for _, r := range records {
		if p.Match(r.IndustryCode) {
			out = append(out, r)
		}
	}
	return out
}
