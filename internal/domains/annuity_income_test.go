package domains

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/pipeline"
	"github.com/linsuisheng034/workdatahub/internal/registry"
)

func TestRegisterAnnuityIncomeWiresBothRegistries(t *testing.T) {
	jobs := registry.NewJobRegistry()
	services := registry.NewDomainServiceRegistry()
	deps := Dependencies{
		Resolver: enrichment.NewResolver(enrichment.Options{Salt: "testsalt"}),
		Mode:     pipeline.StopOnError,
	}

	RegisterAnnuityIncome(jobs, services, deps)

	if _, ok := jobs.Lookup("annuity_income"); !ok {
		t.Fatal("expected annuity_income registered in JobRegistry")
	}
	if _, ok := services.Lookup("annuity_income"); !ok {
		t.Fatal("expected annuity_income registered in DomainServiceRegistry")
	}
}

func TestAnnuityIncomeServiceFnResolvesAndProjects(t *testing.T) {
	jobs := registry.NewJobRegistry()
	services := registry.NewDomainServiceRegistry()
	deps := Dependencies{
		Resolver: enrichment.NewResolver(enrichment.Options{Salt: "testsalt"}),
		Mode:     pipeline.StopOnError,
	}
	RegisterAnnuityIncome(jobs, services, deps)

	frame := &models.Frame{
		Columns: []string{"月度", "计划代码", "客户名称", "缴费收入"},
		Rows: []models.Row{
			{"月度": "2025年2月", "计划代码": "P2", "客户名称": "Beta Co", "缴费收入": "1,200.50"},
		},
	}
	pc := &models.PipelineContext{RunID: "r1", Domain: "annuity_income", Period: "202502"}

	svc, _ := services.Lookup("annuity_income")
	out, rejections, err := svc.ServiceFn(context.Background(), pc, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("expected no rejections, got %v", rejections)
	}
	if out.Rows[0]["计划代码"] != "P2" {
		t.Fatalf("expected plan code preserved through projection, got %v", out.Rows[0]["计划代码"])
	}
	if out.Rows[0]["company_id"] == "" {
		t.Fatal("expected company_id resolved")
	}
}
