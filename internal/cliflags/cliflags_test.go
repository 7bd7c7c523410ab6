package cliflags

import "testing"

func TestParseRequiresDomainOrDomains(t *testing.T) {
	_, err := Parse([]string{"--period", "202501"})
	if err == nil {
		t.Fatal("expected an error when neither --domain nor --domains is set")
	}
}

func TestParseRequiresPeriod(t *testing.T) {
	_, err := Parse([]string{"--domain", "annuity_income"})
	if err == nil {
		t.Fatal("expected an error when --period is missing")
	}
}

func TestParseRejectsExecuteAndPlanOnlyTogether(t *testing.T) {
	_, err := Parse([]string{"--domain", "annuity_income", "--period", "202501", "--execute", "--plan-only=true"})
	if err == nil {
		t.Fatal("expected --execute and --plan-only=true to conflict")
	}
}

func TestParseRejectsUnsupportedMode(t *testing.T) {
	_, err := Parse([]string{"--domain", "annuity_income", "--period", "202501", "--mode", "replace"})
	if err == nil {
		t.Fatal("expected an error for an unsupported --mode value")
	}
}

func TestParseRejectsFileOverrideWithMultipleDomains(t *testing.T) {
	_, err := Parse([]string{"--domains", "a,b", "--period", "202501", "--file", "x.xlsx"})
	if err == nil {
		t.Fatal("expected --file to require exactly one --domain")
	}
}

func TestParseAcceptsValidMinimalInvocation(t *testing.T) {
	opts, err := Parse([]string{"--domain", "annuity_income", "--period", "202501"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if opts.Execute {
		t.Fatal("expected plan-only (Execute=false) by default")
	}
	if opts.Mode != "append" {
		t.Fatalf("expected default mode append, got %q", opts.Mode)
	}
}

func TestParseCheckDBSkipsDomainAndPeriodValidation(t *testing.T) {
	opts, err := Parse([]string{"--check-db"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !opts.CheckDB {
		t.Fatal("expected CheckDB to be set")
	}
}

func TestTargetDomainsSplitsCSV(t *testing.T) {
	opts := Options{Domains: "annuity_income, annuity_performance"}
	got := opts.TargetDomains()
	if len(got) != 2 || got[0] != "annuity_income" || got[1] != "annuity_performance" {
		t.Fatalf("unexpected split: %v", got)
	}
}

func TestTargetDomainsFallsBackToSingleDomain(t *testing.T) {
	opts := Options{Domain: "annuity_income"}
	got := opts.TargetDomains()
	if len(got) != 1 || got[0] != "annuity_income" {
		t.Fatalf("unexpected result: %v", got)
	}
}
