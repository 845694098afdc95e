package match

import (
	"github.com/sells-group/leadmatch/internal/model"
)

// Index maps each matching key to the registry records carrying it.
// Buckets keep registry order; empty keys are never indexed.
type Index struct {
	buckets map[model.MatchMethod]map[string][]model.RegistryRecord
	size    int
}

// BuildIndex indexes records by identifier and by each normalized name form.
// Records must already carry their NormalizedForms.
func BuildIndex(records []model.RegistryRecord) *Index {
	ix := &Index{
		buckets: make(map[model.MatchMethod]map[string][]model.RegistryRecord, len(model.AllMethods)),
		size:    len(records),
	}
	for _, m := range model.AllMethods {
		ix.buckets[m] = make(map[string][]model.RegistryRecord, len(records))
	}
	for _, r := range records {
		for _, m := range model.AllMethods {
			key := registryKey(m, r)
			if key == "" {
				continue
			}
			ix.buckets[m][key] = append(ix.buckets[m][key], r)
		}
	}
	return ix
}

// Lookup returns the registry records whose key for method equals key.
func (ix *Index) Lookup(method model.MatchMethod, key string) []model.RegistryRecord {
	if key == "" {
		return nil
	}
	return ix.buckets[method][key]
}

// Len returns the number of indexed registry records.
func (ix *Index) Len() int {
	return ix.size
}

// Keys returns the number of distinct keys indexed for method.
func (ix *Index) Keys(method model.MatchMethod) int {
	return len(ix.buckets[method])
}

func registryKey(m model.MatchMethod, r model.RegistryRecord) string {
	switch m {
	case model.MethodRegistryID:
		return r.RegistryID
	case model.MethodNameExact:
		return r.Forms.Raw
	case model.MethodNameNoLegal:
		return r.Forms.NoLegal
	case model.MethodNameNoQualif:
		return r.Forms.NoQualifiers
	}
	return ""
}

func sourceKey(m model.MatchMethod, s model.SourceRecord) string {
	switch m {
	case model.MethodRegistryID:
		return s.RegistryID
	case model.MethodNameExact:
		return s.Forms.Raw
	case model.MethodNameNoLegal:
		return s.Forms.NoLegal
	case model.MethodNameNoQualif:
		return s.Forms.NoQualifiers
	}
	return ""
}
