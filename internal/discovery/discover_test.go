package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestDiscoverRejectsMoreThanOneMatchedFile(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"report_a.xlsx", "report_b.xlsx"} {
		if err := os.WriteFile(filepath.Join(base, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := models.DomainConfig{
		Name:             "annuity_performance",
		BasePathTemplate: base,
		IncludePatterns:  []string{"*.xlsx"},
		SheetSelector:    models.SheetSelector{Kind: models.SheetByIndex, Index: 0},
	}

	svc := NewService(nil)
	_, err := svc.Discover(cfg, "202501", "", false)
	if err == nil {
		t.Fatal("expected an ambiguous-match error when more than one file matches")
	}
}

func TestDiscoverConcatenatesRowsWhenMultiFileAllowed(t *testing.T) {
	base := t.TempDir()
	files := map[string]string{
		"part_a.csv": "plan_code,amount\nP1,10\n",
		"part_b.csv": "plan_code,amount\nP2,20\n",
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(base, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := models.DomainConfig{
		Name:             "annuity_performance",
		BasePathTemplate: base,
		IncludePatterns:  []string{"*.csv"},
		SheetSelector:    models.SheetSelector{Kind: models.SheetByIndex, Index: 0},
	}

	svc := NewService(nil)
	result, err := svc.Discover(cfg, "202501", "", true)
	if err != nil {
		t.Fatalf("expected multi-file discovery to succeed, got: %v", err)
	}
	if len(result.Frame.Rows) != 2 {
		t.Fatalf("expected rows from both files concatenated, got %d", len(result.Frame.Rows))
	}
}

func TestDiscoverMaxFilesCapExceeded(t *testing.T) {
	base := t.TempDir()
	for _, name := range []string{"a.xlsx", "b.xlsx"} {
		if err := os.WriteFile(filepath.Join(base, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := models.DomainConfig{
		Name:             "annuity_performance",
		BasePathTemplate: base,
		IncludePatterns:  []string{"*.xlsx"},
		SheetSelector:    models.SheetSelector{Kind: models.SheetByIndex, Index: 0},
	}

	svc := NewService(nil)
	svc.MaxFiles = 1
	_, err := svc.Discover(cfg, "202501", "", false)
	if err == nil {
		t.Fatal("expected an error when matched files exceed --max-files")
	}
}
