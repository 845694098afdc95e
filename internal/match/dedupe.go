package match

import (
	"github.com/sells-group/leadmatch/internal/model"
)

// DedupeRegistry keeps the first record per registry identifier. Records
// without an identifier are kept as-is.
func DedupeRegistry(records []model.RegistryRecord) []model.RegistryRecord {
	seen := make(map[string]bool, len(records))
	out := make([]model.RegistryRecord, 0, len(records))
	for _, r := range records {
		if r.RegistryID != "" {
			if seen[r.RegistryID] {
				continue
			}
			seen[r.RegistryID] = true
		}
		out = append(out, r)
	}
	return out
}

// DedupeSources keeps the first record per source ID.
func DedupeSources(records []model.SourceRecord) []model.SourceRecord {
	seen := make(map[string]bool, len(records))
	out := make([]model.SourceRecord, 0, len(records))
	for _, s := range records {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out = append(out, s)
	}
	return out
}
