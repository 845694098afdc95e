package model

import (
	"time"
)

// SourceRecord is one organization from the CRM export.
type SourceRecord struct {
	ID           string          `json:"id"`                      // explicit record ID, else the raw name
	Name         string          `json:"name"`                    // free text as exported
	RegistryID   string          `json:"registry_id,omitempty"`   // digits only; empty when missing
	LastActivity time.Time       `json:"last_activity,omitempty"` // zero when absent or unparseable
	Forms        NormalizedForms `json:"-"`
}

// RegistryRecord is one organization from the registry export.
type RegistryRecord struct {
	RegistryID          string          `json:"registry_id"`
	Name                string          `json:"name"`
	IndustryCode        string          `json:"industry_code"`
	IndustryDescription string          `json:"industry_description"`
	Forms               NormalizedForms `json:"-"`
}

// Key returns the registry-side de-duplication key used by the resolver:
// the identifier when present, else the registry name.
func (r RegistryRecord) Key() string {
	if r.RegistryID != "" {
		return r.RegistryID
	}
	return r.Name
}

// NormalizedForms holds the three canonical forms of a company name.
type NormalizedForms struct {
	Raw          string `json:"raw"`
	NoLegal      string `json:"no_legal"`
	NoQualifiers string `json:"no_qualifiers"`
}
