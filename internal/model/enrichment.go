package model

// EnrichmentResult holds the live figures for one registry identifier.
// A nil figure means unknown, never zero.
type EnrichmentResult struct {
	RegistryID string `json:"registry_id"`
	Employees  *int64 `json:"employees,omitempty"`
	Revenue    *int64 `json:"revenue,omitempty"` // whole NOK
}

// ResultRow is a matched pair with its enrichment attached. The filter and
// exporters operate on rows; they never change cell values.
type ResultRow struct {
	Pair       MatchedPair `json:"pair"`
	RegistryID string      `json:"registry_id"`
	Employees  *int64      `json:"employees,omitempty"`
	Revenue    *int64      `json:"revenue,omitempty"`
}

// Int64 returns a pointer to v.
func Int64(v int64) *int64 {
	return &v
}
