package hooks

import (
	"context"
	"errors"
	"testing"
)

type fakeHook struct {
	name string
	err  error
	ran  *[]string
}

func (f fakeHook) Name() string { return f.name }

func (f fakeHook) Run(ctx context.Context, run RunContext) error {
	*f.ran = append(*f.ran, f.name)
	return f.err
}

func TestRunnerExecutesInOrder(t *testing.T) {
	var ran []string
	runner := NewRunner(nil)
	hooks := []Hook{
		fakeHook{name: "contract_status_sync", ran: &ran},
		fakeHook{name: "monthly_snapshot_refresh", ran: &ran},
	}

	results := runner.Run(context.Background(), RunContext{Domain: "annuity_performance"}, hooks)

	if len(ran) != 2 || ran[0] != "contract_status_sync" || ran[1] != "monthly_snapshot_refresh" {
		t.Fatalf("expected ordered execution, got %v", ran)
	}
	for _, r := range results {
		if !r.OK {
			t.Fatalf("expected all hooks to succeed, got %+v", r)
		}
	}
}

func TestRunnerSkipsRemainingOnFailure(t *testing.T) {
	var ran []string
	runner := NewRunner(nil)
	hooks := []Hook{
		fakeHook{name: "first", ran: &ran, err: errors.New("sync failed")},
		fakeHook{name: "second", ran: &ran},
	}

	results := runner.Run(context.Background(), RunContext{Domain: "annuity_performance"}, hooks)

	if len(ran) != 1 {
		t.Fatalf("expected second hook to be skipped, ran=%v", ran)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result for the failing hook, got %d", len(results))
	}
	if results[0].OK || results[0].Error == "" {
		t.Fatalf("expected failure recorded, got %+v", results[0])
	}
}

func TestRunnerEmptyHookListReturnsNoResults(t *testing.T) {
	runner := NewRunner(nil)
	results := runner.Run(context.Background(), RunContext{Domain: "annuity_income"}, nil)
	if len(results) != 0 {
		t.Fatalf("expected no results for empty hook list, got %v", results)
	}
}
