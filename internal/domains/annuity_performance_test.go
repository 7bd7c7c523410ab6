package domains

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/pipeline"
	"github.com/linsuisheng034/workdatahub/internal/registry"
)

func TestAnnuityPerformanceToRowOutRejectsUnparsableMonth(t *testing.T) {
	row := models.Row{"月度": "not-a-month"}
	if _, err := annuityPerformanceToRowOut(row); err == nil {
		t.Fatal("expected an error for an unparsable report month")
	}
}

func TestAnnuityPerformanceToRowOutCoercesRow(t *testing.T) {
	row := models.Row{
		"月度":   "202501",
		"计划代码": "P0190",
		"期末资产规模": 100.5,
		"company_id": "C1",
	}
	out, err := annuityPerformanceToRowOut(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rowOut := out.(AnnuityPerformanceRowOut)
	if rowOut.PlanCode != "P0190" || rowOut.CompanyID != "C1" || rowOut.EndingBalance != 100.5 {
		t.Fatalf("unexpected coerced row: %+v", rowOut)
	}
}

func TestRegisterAnnuityPerformanceWiresBothRegistries(t *testing.T) {
	jobs := registry.NewJobRegistry()
	services := registry.NewDomainServiceRegistry()
	deps := Dependencies{
		Resolver: enrichment.NewResolver(enrichment.Options{Salt: "testsalt"}),
		Mode:     pipeline.StopOnError,
	}

	RegisterAnnuityPerformance(jobs, services, deps)

	caps, ok := jobs.Lookup("annuity_performance")
	if !ok || !caps.SupportsBackfill || !caps.SupportsEnrichment {
		t.Fatalf("expected registered capabilities, got %+v ok=%v", caps, ok)
	}
	if _, ok := services.Lookup("annuity_performance"); !ok {
		t.Fatal("expected a registered service function")
	}
}

func TestAnnuityPerformanceServiceFnRunsFullStepSequence(t *testing.T) {
	jobs := registry.NewJobRegistry()
	services := registry.NewDomainServiceRegistry()
	deps := Dependencies{
		Resolver: enrichment.NewResolver(enrichment.Options{Salt: "testsalt"}),
		Mode:     pipeline.StopOnError,
	}
	RegisterAnnuityPerformance(jobs, services, deps)

	frame := &models.Frame{
		Columns: []string{"月度", "计划代码", "客户名称", "期末资产规模"},
		Rows: []models.Row{
			{"月度": "202501", "计划代码": "P1", "客户名称": "Acme Co", "期末资产规模": 100.0},
		},
	}
	pc := &models.PipelineContext{RunID: "r1", Domain: "annuity_performance", Period: "202501"}

	svc, _ := services.Lookup("annuity_performance")
	out, rejections, err := svc.ServiceFn(context.Background(), pc, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("expected no rejections, got %v", rejections)
	}
	if len(out.Rows) != 1 {
		t.Fatalf("expected one surviving row, got %d", len(out.Rows))
	}
	if out.Rows[0]["company_id"] == "" {
		t.Fatal("expected company_id to be resolved")
	}
}
