// Package tabular reads the CRM and registry exports and writes the
// matched result as CSV or XLSX.
package tabular

// SourceColumns names the CRM export headers. RecordID and LastActivity
// are optional.
type SourceColumns struct {
	Name         string `yaml:"name" mapstructure:"name"`
	RegistryID   string `yaml:"registry_id" mapstructure:"registry_id"`
	RecordID     string `yaml:"record_id" mapstructure:"record_id"`
	LastActivity string `yaml:"last_activity" mapstructure:"last_activity"`
}

// RegistryColumns names the registry export headers. The industry columns
// are optional.
type RegistryColumns struct {
	RegistryID          string `yaml:"registry_id" mapstructure:"registry_id"`
	Name                string `yaml:"name" mapstructure:"name"`
	IndustryCode        string `yaml:"industry_code" mapstructure:"industry_code"`
	IndustryDescription string `yaml:"industry_description" mapstructure:"industry_description"`
}

// DefaultSourceColumns matches a HubSpot company export.
func DefaultSourceColumns() SourceColumns {
	return SourceColumns{
		Name:         "Company name",
		RegistryID:   "Organisasjonsnummer",
		RecordID:     "Record ID",
		LastActivity: "Last Activity Date",
	}
}

// DefaultRegistryColumns matches the Enhetsregisteret bulk CSV.
func DefaultRegistryColumns() RegistryColumns {
	return RegistryColumns{
		RegistryID:          "organisasjonsnummer",
		Name:                "navn",
		IndustryCode:        "naeringskode1.kode",
		IndustryDescription: "naeringskode1.beskrivelse",
	}
}

func (c SourceColumns) withDefaults() SourceColumns {
	d := DefaultSourceColumns()
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.RegistryID == "" {
		c.RegistryID = d.RegistryID
	}
	if c.RecordID == "" {
		c.RecordID = d.RecordID
	}
	if c.LastActivity == "" {
		c.LastActivity = d.LastActivity
	}
	return c
}

func (c RegistryColumns) withDefaults() RegistryColumns {
	d := DefaultRegistryColumns()
	if c.RegistryID == "" {
		c.RegistryID = d.RegistryID
	}
	if c.Name == "" {
		c.Name = d.Name
	}
	if c.IndustryCode == "" {
		c.IndustryCode = d.IndustryCode
	}
	if c.IndustryDescription == "" {
		c.IndustryDescription = d.IndustryDescription
	}
	return c
}
