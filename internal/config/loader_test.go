package config

import (
	"testing"
)

func TestConvertDomainsWiresDeleteKeyAndGoldColumns(t *testing.T) {
	raw := dataSourcesFile{
		Domains: map[string]domainYAML{
			"annuity_performance": {
				BasePath:                 "/data/{YYYYMM}",
				FilePatterns:             []string{"*.xlsx"},
				SheetName:                "Sheet1",
				CompositeDeleteKeyColumns: []string{"月度", "计划代码", "company_id"},
				GoldNotNullColumns:       []string{"月度", "计划代码", "company_id"},
				GoldMonetaryColumns:      []string{"期初资产规模", "期末资产规模"},
				Output:                   outputYAML{Table: "annuity_performance", PK: []string{"月度", "计划代码", "组合代码", "company_id"}},
			},
		},
	}

	domains, err := convertDomains(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg := domains["annuity_performance"]

	if len(cfg.CompositeDeleteKeyColumns) != 3 {
		t.Fatalf("expected composite_delete_key_columns to be carried through, got %v", cfg.CompositeDeleteKeyColumns)
	}
	if len(cfg.GoldNotNullColumns) != 3 {
		t.Fatalf("expected gold_not_null_columns to be carried through, got %v", cfg.GoldNotNullColumns)
	}
	if len(cfg.GoldMonetaryColumns) != 2 {
		t.Fatalf("expected gold_monetary_columns to be carried through, got %v", cfg.GoldMonetaryColumns)
	}
}
