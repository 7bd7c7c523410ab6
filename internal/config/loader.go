package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// Paths names the on-disk location of each configuration file, mirroring
// the teacher's pattern of a small struct of file paths passed into Load
// rather than a single monolithic path.
type Paths struct {
	DataSources     string
	ForeignKeys     string
	CompanyMapping  string
	EQCConfidence   string
}

// DefaultPaths returns the conventional config file locations relative to
// the working directory the orchestrator is invoked from.
func DefaultPaths() Paths {
	return Paths{
		DataSources:    "config/data_sources.yml",
		ForeignKeys:    "config/foreign_keys.yml",
		CompanyMapping: "config/company_mapping.yml",
		EQCConfidence:  "config/eqc_confidence.yml",
	}
}

// Store is the immutable configuration snapshot every other component is
// constructed with (spec §4.1 / design note: "confine [global state] to one
// immutable snapshot loaded at startup and passed to components via their
// constructors").
type Store struct {
	domains        map[string]models.DomainConfig
	foreignKeys    map[string][]models.ForeignKeyRule
	companyMapping CompanyMapping
	eqcConfidence  EQCConfidence
	env            EnvSettings
}

// LoadAll loads and validates every configuration file plus the optional
// .env file, returning a single immutable Store or the first offending
// error encountered (spec §4.1 load_all contract).
func LoadAll(envFilePath string, paths Paths) (*Store, error) {
	// .env is loaded first with godotenv.Overload, so a value it defines
	// replaces an OS environment variable of the same name; OS variables
	// win only over the hard defaults below, for keys .env does not set.
	if envFilePath != "" {
		if err := godotenv.Overload(envFilePath); err != nil && !os.IsNotExist(err) {
			return nil, errs.NewConfigError(envFilePath, "failed to load env file", err)
		}
	}

	dsBytes, err := os.ReadFile(paths.DataSources)
	if err != nil {
		return nil, errs.NewConfigError(paths.DataSources, "failed to read data_sources.yml", err)
	}
	fkBytes, err := os.ReadFile(paths.ForeignKeys)
	if err != nil {
		return nil, errs.NewConfigError(paths.ForeignKeys, "failed to read foreign_keys.yml", err)
	}
	cmBytes, err := os.ReadFile(paths.CompanyMapping)
	if err != nil {
		return nil, errs.NewConfigError(paths.CompanyMapping, "failed to read company_mapping.yml", err)
	}
	eqcBytes, err := os.ReadFile(paths.EQCConfidence)
	if err != nil {
		return nil, errs.NewConfigError(paths.EQCConfidence, "failed to read eqc_confidence.yml", err)
	}

	raw := rawConfigFiles{
		dataSourcesPath:    paths.DataSources,
		dataSources:        dsBytes,
		foreignKeysPath:    paths.ForeignKeys,
		foreignKeys:        fkBytes,
		companyMappingPath: paths.CompanyMapping,
		companyMapping:     cmBytes,
		eqcConfidencePath:  paths.EQCConfidence,
		eqcConfidence:      eqcBytes,
	}
	if err := validateSchemas(raw); err != nil {
		return nil, err
	}

	var dsRaw dataSourcesFile
	if err := yaml.Unmarshal(dsBytes, &dsRaw); err != nil {
		return nil, errs.NewConfigError(paths.DataSources, "failed to parse data_sources.yml", err)
	}
	var fkRaw foreignKeysFile
	if err := yaml.Unmarshal(fkBytes, &fkRaw); err != nil {
		return nil, errs.NewConfigError(paths.ForeignKeys, "failed to parse foreign_keys.yml", err)
	}
	var cmRaw companyMappingFile
	if err := yaml.Unmarshal(cmBytes, &cmRaw); err != nil {
		return nil, errs.NewConfigError(paths.CompanyMapping, "failed to parse company_mapping.yml", err)
	}
	var eqcRaw eqcConfidenceFile
	if err := yaml.Unmarshal(eqcBytes, &eqcRaw); err != nil {
		return nil, errs.NewConfigError(paths.EQCConfidence, "failed to parse eqc_confidence.yml", err)
	}

	domains, err := convertDomains(dsRaw)
	if err != nil {
		return nil, err
	}
	fkRules, err := convertForeignKeys(fkRaw, domains)
	if err != nil {
		return nil, err
	}

	store := &Store{
		domains:     domains,
		foreignKeys: fkRules,
		companyMapping: CompanyMapping{
			PlanCode:      cmRaw.PlanCode,
			AccountName:   cmRaw.AccountName,
			AccountNumber: cmRaw.AccountNumber,
			CustomerName:  cmRaw.CustomerName,
		},
		eqcConfidence: EQCConfidence{
			MatchConfidence:       eqcRaw.EQCMatchConfidence,
			Default:               orDefault(eqcRaw.Default, 0.70),
			MinConfidenceForCache: orDefault(eqcRaw.MinConfidenceForCache, 0.60),
		},
		env: loadEnvSettings(),
	}

	return store, nil
}

// rawConfigFiles carries each config file's path and unparsed bytes through
// to schema validation, which must see the original document shape
// (including any keys the typed structs above don't know about) to enforce
// "unknown keys are rejected".
type rawConfigFiles struct {
	dataSourcesPath    string
	dataSources        []byte
	foreignKeysPath    string
	foreignKeys        []byte
	companyMappingPath string
	companyMapping     []byte
	eqcConfidencePath  string
	eqcConfidence      []byte
}

func configValidationError(path string, cause error) error {
	return errs.NewConfigError(path, "schema validation failed", cause)
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

var allowedVersionStrategies = map[string]bool{
	string(models.VersionHighestNumber):  true,
	string(models.VersionLatestModified): true,
	string(models.VersionManual):         true,
}

var allowedFallbacks = map[string]bool{
	string(models.FallbackError):             true,
	string(models.FallbackUseLatestModified):  true,
}

func convertDomains(raw dataSourcesFile) (map[string]models.DomainConfig, error) {
	out := make(map[string]models.DomainConfig, len(raw.Domains))
	for name, d := range raw.Domains {
		path := fmt.Sprintf("domains.%s", name)
		if d.BasePath == "" {
			return nil, errs.NewConfigError(path+".base_path", "base_path is required", nil)
		}
		if len(d.FilePatterns) == 0 {
			return nil, errs.NewConfigError(path+".file_patterns", "file_patterns is required", nil)
		}
		if d.SheetName == "" && d.SheetIndex == nil {
			return nil, errs.NewConfigError(path+".sheet_name", "sheet_name or sheet_index is required", nil)
		}
		if d.Output.Table == "" {
			return nil, errs.NewConfigError(path+".output.table", "output.table is required", nil)
		}
		if len(d.Output.PK) == 0 {
			return nil, errs.NewConfigError(path+".output.pk", "output.pk is required", nil)
		}
		strategy := d.VersionStrategy
		if strategy == "" {
			strategy = string(models.VersionHighestNumber)
		}
		if !allowedVersionStrategies[strategy] {
			return nil, errs.NewConfigError(path+".version_strategy", fmt.Sprintf("unknown version_strategy %q", strategy), nil)
		}
		fallback := d.Fallback
		if fallback == "" {
			fallback = string(models.FallbackError)
		}
		if !allowedFallbacks[fallback] {
			return nil, errs.NewConfigError(path+".fallback", fmt.Sprintf("unknown fallback %q", fallback), nil)
		}

		sel := models.SheetSelector{Kind: models.SheetByName, Name: d.SheetName}
		if d.SheetIndex != nil {
			sel = models.SheetSelector{Kind: models.SheetByIndex, Index: *d.SheetIndex}
		}

		out[name] = models.DomainConfig{
			Name:                      name,
			BasePathTemplate:          d.BasePath,
			IncludePatterns:           d.FilePatterns,
			ExcludePatterns:           d.ExcludePatterns,
			SheetSelector:             sel,
			VersionStrategy:           models.VersionStrategy(strategy),
			VersionFallback:           models.VersionFallback(fallback),
			Output:                    models.OutputConfig{Table: d.Output.Table, SchemaName: d.Output.SchemaName, PK: d.Output.PK},
			CompositeDeleteKeyColumns: d.CompositeDeleteKeyColumns,
			RequiresBackfill:          d.RequiresBackfill,
			SupportsEnrichment:        d.SupportsEnrichment,
			GoldNotNullColumns:        d.GoldNotNullColumns,
			GoldMonetaryColumns:       d.GoldMonetaryColumns,
		}
	}
	return out, nil
}

func convertForeignKeys(raw foreignKeysFile, domains map[string]models.DomainConfig) (map[string][]models.ForeignKeyRule, error) {
	out := make(map[string][]models.ForeignKeyRule, len(raw.Domains))
	for domain, rules := range raw.Domains {
		if _, ok := domains[domain]; !ok {
			return nil, errs.NewConfigError(fmt.Sprintf("foreign_keys.domains.%s", domain), "foreign_keys.yml references unknown domain", nil)
		}
		converted := make([]models.ForeignKeyRule, 0, len(rules))
		for i, r := range rules {
			path := fmt.Sprintf("foreign_keys.domains.%s[%d]", domain, i)
			if r.Name == "" {
				return nil, errs.NewConfigError(path+".name", "name is required", nil)
			}
			if r.SourceColumn == "" {
				return nil, errs.NewConfigError(path+".source_column", "source_column is required", nil)
			}
			if r.TargetTable == "" {
				return nil, errs.NewConfigError(path+".target_table", "target_table is required", nil)
			}
			mode := r.Mode
			if mode == "" {
				mode = string(models.FKModeInsertMissing)
			}
			if mode != string(models.FKModeInsertMissing) {
				return nil, errs.NewConfigError(path+".mode", fmt.Sprintf("unsupported mode %q", mode), nil)
			}
			cols := make([]models.BackfillColumn, 0, len(r.BackfillColumns))
			for _, bc := range r.BackfillColumns {
				col := models.BackfillColumn{Source: bc.Source, Target: bc.Target, Optional: bc.Optional}
				if bc.Aggregation != nil {
					col.Aggregation = &models.Aggregation{
						Type:        models.AggregationType(bc.Aggregation.Type),
						OrderColumn: bc.Aggregation.OrderColumn,
						Separator:   bc.Aggregation.Separator,
						Sort:        bc.Aggregation.Sort,
					}
				}
				cols = append(cols, col)
			}
			converted = append(converted, models.ForeignKeyRule{
				Name:            r.Name,
				SourceColumn:    r.SourceColumn,
				TargetTable:     r.TargetTable,
				TargetKey:       r.TargetKey,
				TargetSchema:    r.TargetSchema,
				Mode:            models.FKMode(mode),
				DependsOn:       r.DependsOn,
				SkipBlankValues: r.SkipBlankValues,
				BackfillColumns: cols,
			})
		}
		sorted, err := topoSortRules(domain, converted)
		if err != nil {
			return nil, err
		}
		out[domain] = sorted
	}
	return out, nil
}

// topoSortRules orders rules so that every rule appears after everything it
// depends_on (spec §4.1 get_foreign_keys contract), detecting cycles.
func topoSortRules(domain string, rules []models.ForeignKeyRule) ([]models.ForeignKeyRule, error) {
	byName := make(map[string]models.ForeignKeyRule, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(rules))
	var out []models.ForeignKeyRule

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return errs.NewConfigError(fmt.Sprintf("foreign_keys.domains.%s", domain), fmt.Sprintf("cyclic depends_on involving %q", name), nil)
		}
		r, ok := byName[name]
		if !ok {
			return errs.NewConfigError(fmt.Sprintf("foreign_keys.domains.%s", domain), fmt.Sprintf("rule %q depends_on unknown rule %q", path[len(path)-1], name), nil)
		}
		state[name] = visiting
		for _, dep := range r.DependsOn {
			if err := visit(dep, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = visited
		out = append(out, r)
		return nil
	}

	for _, r := range rules {
		if err := visit(r.Name, []string{r.Name}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func loadEnvSettings() EnvSettings {
	budget := 0
	if v := os.Getenv("WDH_SYNC_BUDGET_DEFAULT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			budget = n
		}
	}
	enabled := true
	if v := os.Getenv("WDH_ENRICHMENT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			enabled = b
		}
	}
	return EnvSettings{
		DatabaseURI:       os.Getenv("WDH_DATABASE_URI"),
		LegacyDatabaseURI: os.Getenv("WDH_LEGACY_DATABASE_URI"),
		EnrichmentSalt:    os.Getenv("WDH_ENRICHMENT_SALT"),
		EQCAPIToken:       os.Getenv("WDH_EQC_API_TOKEN"),
		EQCAPIBaseURL:     os.Getenv("WDH_EQC_API_BASE_URL"),
		SyncBudgetDefault: budget,
		EnrichmentEnabled: enabled,
		LogLevel:          envOr("WDH_LOG_LEVEL", "info"),
		LogTargetDir:      envOr("WDH_LOG_DIR", "logs"),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// GetDomain returns the validated DomainConfig for name, or a ConfigError
// if it is unregistered (spec §4.1 get_domain contract).
func (s *Store) GetDomain(name string) (models.DomainConfig, error) {
	d, ok := s.domains[name]
	if !ok {
		return models.DomainConfig{}, errs.NewConfigError(fmt.Sprintf("domains.%s", name), "unknown domain", nil)
	}
	return d, nil
}

// DomainNames returns every registered domain name, used by the registry's
// startup validation pass.
func (s *Store) DomainNames() []string {
	names := make([]string, 0, len(s.domains))
	for n := range s.domains {
		names = append(names, n)
	}
	return names
}

// GetForeignKeys returns the dependency-ordered FK rules for domain (spec
// §4.1 get_foreign_keys contract). A domain with no rules returns an empty
// slice, not an error.
func (s *Store) GetForeignKeys(domain string) []models.ForeignKeyRule {
	return s.foreignKeys[domain]
}

// CompanyMapping returns the loaded company_mapping.yml snapshot.
func (s *Store) CompanyMapping() CompanyMapping { return s.companyMapping }

// EQCConfidence returns the loaded eqc_confidence.yml snapshot.
func (s *Store) EQCConfidence() EQCConfidence { return s.eqcConfidence }

// Env returns the loaded environment settings snapshot.
func (s *Store) Env() EnvSettings { return s.env }
