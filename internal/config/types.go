package config

import "github.com/linsuisheng034/workdatahub/internal/models"

// dataSourcesFile is the raw shape of data_sources.yml.
type dataSourcesFile struct {
	Domains map[string]domainYAML `yaml:"domains"`
}

type outputYAML struct {
	Table      string   `yaml:"table"`
	SchemaName string   `yaml:"schema_name"`
	PK         []string `yaml:"pk"`
}

type domainYAML struct {
	BasePath                 string     `yaml:"base_path"`
	FilePatterns             []string   `yaml:"file_patterns"`
	ExcludePatterns          []string   `yaml:"exclude_patterns"`
	SheetName                string     `yaml:"sheet_name"`
	SheetIndex               *int       `yaml:"sheet_index"`
	VersionStrategy          string     `yaml:"version_strategy"`
	Fallback                 string     `yaml:"fallback"`
	RequiresBackfill         bool       `yaml:"requires_backfill"`
	SupportsEnrichment       bool       `yaml:"supports_enrichment"`
	CompositeDeleteKeyColumns []string  `yaml:"composite_delete_key_columns"`
	GoldNotNullColumns       []string   `yaml:"gold_not_null_columns"`
	GoldMonetaryColumns      []string   `yaml:"gold_monetary_columns"`
	Output                   outputYAML `yaml:"output"`
}

// foreignKeysFile is the raw shape of foreign_keys.yml: domain name ->
// ordered list of rules (ordering in the file is advisory; GetForeignKeys
// topologically sorts by depends_on regardless).
type foreignKeysFile struct {
	Domains map[string][]fkRuleYAML `yaml:"domains"`
}

type aggregationYAML struct {
	Type        string `yaml:"type"`
	OrderColumn string `yaml:"order_column"`
	Separator   string `yaml:"separator"`
	Sort        bool   `yaml:"sort"`
}

type backfillColumnYAML struct {
	Source      string           `yaml:"source"`
	Target      string           `yaml:"target"`
	Optional    bool             `yaml:"optional"`
	Aggregation *aggregationYAML `yaml:"aggregation"`
}

type fkRuleYAML struct {
	Name            string               `yaml:"name"`
	SourceColumn    string               `yaml:"source_column"`
	TargetTable     string               `yaml:"target_table"`
	TargetKey       string               `yaml:"target_key"`
	TargetSchema    string               `yaml:"target_schema"`
	Mode            string               `yaml:"mode"`
	DependsOn       []string             `yaml:"depends_on"`
	SkipBlankValues bool                 `yaml:"skip_blank_values"`
	BackfillColumns []backfillColumnYAML `yaml:"backfill_columns"`
}

// companyMappingFile is the raw shape of company_mapping.yml: lookup type
// -> lookup key -> company_id.
type companyMappingFile struct {
	PlanCode     map[string]string `yaml:"plan_code"`
	AccountName  map[string]string `yaml:"account_name"`
	AccountNumber map[string]string `yaml:"account_number"`
	CustomerName map[string]string `yaml:"customer_name"`
}

// eqcConfidenceFile is the raw shape of eqc_confidence.yml.
type eqcConfidenceFile struct {
	EQCMatchConfidence    map[string]float64 `yaml:"eqc_match_confidence"`
	Default               float64            `yaml:"default"`
	MinConfidenceForCache float64            `yaml:"min_confidence_for_cache"`
}

// CompanyMapping is the Layer-1 exact-match table, keyed first by lookup
// type then by lookup key, as spec §4.6 Layer 1 requires.
type CompanyMapping struct {
	PlanCode      map[string]string
	AccountName   map[string]string
	AccountNumber map[string]string
	CustomerName  map[string]string
}

// Lookup checks plan_code, then account_name, then account_number, then
// customer_name, in that priority order (spec §4.6 Layer 1).
func (m CompanyMapping) Lookup(req models.ResolutionRequest) (string, bool) {
	if req.PlanCode != "" {
		if id, ok := m.PlanCode[req.PlanCode]; ok {
			return id, true
		}
	}
	if req.AccountName != "" {
		if id, ok := m.AccountName[req.AccountName]; ok {
			return id, true
		}
	}
	if req.AccountNumber != "" {
		if id, ok := m.AccountNumber[req.AccountNumber]; ok {
			return id, true
		}
	}
	if req.CustomerName != "" {
		if id, ok := m.CustomerName[req.CustomerName]; ok {
			return id, true
		}
	}
	return "", false
}

// EQCConfidence is the resolved confidence table for Layer 4 (spec §4.6).
type EQCConfidence struct {
	MatchConfidence       map[string]float64
	Default               float64
	MinConfidenceForCache float64
}

// ConfidenceFor returns the configured confidence for an EQC match-type
// label, falling back to Default when the label is unrecognized.
func (c EQCConfidence) ConfidenceFor(matchType string) float64 {
	if v, ok := c.MatchConfidence[matchType]; ok {
		return v
	}
	return c.Default
}

// EnvSettings holds the recognized environment variables (spec §6).
type EnvSettings struct {
	DatabaseURI       string
	LegacyDatabaseURI string
	EnrichmentSalt    string
	EQCAPIToken       string
	EQCAPIBaseURL     string
	SyncBudgetDefault int
	EnrichmentEnabled bool
	LogLevel          string
	LogTargetDir      string
}
