package brreg

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// RevenueKeys are probed, in order, before any deep scan.
var RevenueKeys = []string{
	"sumDriftsinntekter",
	"driftsinntekter",
	"salgsinntekter",
	"salgsinntekt",
	"nettoDriftsinntekter",
	"omsetning",
}

// revenueFragments mark a key as revenue-like during the deep scan.
var revenueFragments = []string{"inntekt", "omset"}

// ExtractRevenue finds the operating revenue in an annual-accounts payload.
// Known keys on the top-level object win. Otherwise the payload is walked
// depth first and the first object holding a numeric revenue-like field
// supplies the figure. List payloads are ordered latest fiscal year first.
// Returns nil when no numeric figure is found.
func ExtractRevenue(payload any) *int64 {
	if obj, ok := payload.(map[string]any); ok {
		for _, k := range RevenueKeys {
			if v, ok := numeric(obj[k]); ok {
				return roundInt(v)
			}
		}
	}

	stack := []any{payload}
	if list, ok := payload.([]any); ok {
		stack = stack[:0]
		ordered := LatestFirst(list)
		for i := len(ordered) - 1; i >= 0; i-- {
			stack = append(stack, ordered[i])
		}
	}
	for len(stack) > 0 {
		n := len(stack) - 1
		node := stack[n]
		stack = stack[:n]

		switch x := node.(type) {
		case map[string]any:
			if v, ok := revenueFromObject(x); ok {
				return roundInt(v)
			}
			keys := sortedKeys(x)
			// Push in reverse so the first key is visited first.
			for i := len(keys) - 1; i >= 0; i-- {
				switch x[keys[i]].(type) {
				case map[string]any, []any:
					stack = append(stack, x[keys[i]])
				}
			}
		case []any:
			for i := len(x) - 1; i >= 0; i-- {
				switch x[i].(type) {
				case map[string]any, []any:
					stack = append(stack, x[i])
				}
			}
		}
	}
	return nil
}

// revenueFromObject checks one object: known keys first, then any key whose
// lowercase form contains a revenue fragment.
func revenueFromObject(obj map[string]any) (float64, bool) {
	for _, k := range RevenueKeys {
		if v, ok := numeric(obj[k]); ok {
			return v, true
		}
	}
	for _, k := range sortedKeys(obj) {
		lk := strings.ToLower(k)
		for _, frag := range revenueFragments {
			if strings.Contains(lk, frag) {
				if v, ok := numeric(obj[k]); ok {
					return v, true
				}
				break
			}
		}
	}
	return 0, false
}

// LatestFirst returns a copy of statements ordered by fiscal year,
// newest first. Entries without a recognizable year keep their relative
// order after the dated ones.
func LatestFirst(statements []any) []any {
	out := make([]any, len(statements))
	copy(out, statements)
	sort.SliceStable(out, func(i, j int) bool {
		return FiscalYear(out[i]) > FiscalYear(out[j])
	})
	return out
}

// FiscalYear reads the accounting year of a statement. It understands the
// regnskapsperiode.tilDato date as well as explicit year fields. Returns 0
// when none is present.
func FiscalYear(statement any) int {
	obj, ok := statement.(map[string]any)
	if !ok {
		return 0
	}
	if p, ok := obj["regnskapsperiode"].(map[string]any); ok {
		for _, k := range []string{"tilDato", "fraDato"} {
			if s, ok := p[k].(string); ok {
				if t, err := time.Parse("2006-01-02", s); err == nil {
					return t.Year()
				}
			}
		}
	}
	for _, holder := range []any{obj["periode"], obj} {
		h, ok := holder.(map[string]any)
		if !ok {
			continue
		}
		for _, k := range []string{"regnskapsår", "regnskapsaar", "ar"} {
			if v, ok := numeric(h[k]); ok && v > 0 {
				return int(v)
			}
		}
	}
	return 0
}

// ParseEmployees reads antallAnsatte. Missing, null, negative, or
// non-numeric values give nil.
func ParseEmployees(raw json.RawMessage) *int64 {
	if len(raw) == 0 {
		return nil
	}
	var v any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return nil
	}
	f, ok := numeric(v)
	if !ok || f < 0 {
		return nil
	}
	n := int64(f)
	return &n
}

// numeric interprets v as a number. Strings may carry space digit grouping
// and a decimal comma.
func numeric(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		var err error
		if f, err = x.Float64(); err != nil {
			return 0, false
		}
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case string:
		s := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\u00a0', '\u202f', '\t':
				return -1
			case ',':
				return '.'
			}
			return r
		}, x)
		if s == "" {
			return 0, false
		}
		var err error
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func roundInt(f float64) *int64 {
	n := int64(math.Round(f))
	return &n
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
