package registry

import (
	"context"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

func TestDomainServiceRegistryDispatchNeverBranchesOnName(t *testing.T) {
	services := NewDomainServiceRegistry()
	called := ""
	services.Register("annuity_performance", DomainService{
		ServiceFn: func(ctx context.Context, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
			called = "annuity_performance"
			return frame, nil, nil
		},
	})
	services.Register("annuity_income", DomainService{
		ServiceFn: func(ctx context.Context, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
			called = "annuity_income"
			return frame, nil, nil
		},
	})

	frame := &models.Frame{}
	_, _, err := services.Dispatch(context.Background(), "annuity_income", &models.PipelineContext{}, frame)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "annuity_income" {
		t.Fatalf("expected annuity_income's service_fn to run, got %q", called)
	}
}

func TestDomainServiceRegistryDispatchUnknownDomain(t *testing.T) {
	services := NewDomainServiceRegistry()
	_, _, err := services.Dispatch(context.Background(), "unknown_domain", &models.PipelineContext{}, &models.Frame{})
	if err == nil {
		t.Fatal("expected error for unregistered domain")
	}
}

type fakeConfiguredDomains []string

func (f fakeConfiguredDomains) DomainNames() []string { return f }

func TestValidateStartupReportsMissingRegistrations(t *testing.T) {
	cfg := fakeConfiguredDomains{"annuity_performance", "annuity_income"}
	jobs := NewJobRegistry()
	jobs.Register("annuity_performance", JobCapabilities{})
	services := NewDomainServiceRegistry()
	services.Register("annuity_performance", DomainService{})
	services.Register("annuity_income", DomainService{})

	err := ValidateStartup(cfg, jobs, services, nil)
	if err == nil {
		t.Fatal("expected an error for annuity_income missing from JobRegistry")
	}
}

func TestValidateStartupWarnsOnUnknownRegisteredDomain(t *testing.T) {
	cfg := fakeConfiguredDomains{"annuity_performance"}
	jobs := NewJobRegistry()
	jobs.Register("annuity_performance", JobCapabilities{})
	jobs.Register("stray_domain", JobCapabilities{})
	services := NewDomainServiceRegistry()
	services.Register("annuity_performance", DomainService{})

	var warnings []string
	err := ValidateStartup(cfg, jobs, services, func(msg string) { warnings = append(warnings, msg) })
	if err != nil {
		t.Fatalf("unexpected error, unknown registrations are warnings only: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning for stray_domain, got %v", warnings)
	}
}

func TestJobRegistryLookup(t *testing.T) {
	jobs := NewJobRegistry()
	jobs.Register("annuity_performance", JobCapabilities{SupportsBackfill: true, SupportsEnrichment: true})

	caps, ok := jobs.Lookup("annuity_performance")
	if !ok || !caps.SupportsBackfill || !caps.SupportsEnrichment {
		t.Fatalf("expected registered capabilities, got %+v ok=%v", caps, ok)
	}

	if _, ok := jobs.Lookup("missing_domain"); ok {
		t.Fatal("expected missing domain to be unregistered")
	}
}
