package registry

import (
	"context"
	"errors"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/discovery"
	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/fkbackfill"
	"github.com/linsuisheng034/workdatahub/internal/hooks"
	"github.com/linsuisheng034/workdatahub/internal/loader"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
	"github.com/linsuisheng034/workdatahub/internal/validation"
)

// RunOptions carries the per-run configuration the CLI assembles from
// flags plus the domain's declarative capabilities (spec §4.9: "the
// orchestrator builds a run-config object from CLI flags plus declarative
// capabilities").
type RunOptions struct {
	Domain       string
	Period       string
	OverrideFile string
	LoadMode     models.LoadMode
	PlanOnly     bool
	RunPostHooks bool
}

// Orchestrator executes the discover → read → process → (optional)
// fk_backfill → load → post_hooks graph for one domain (spec §4.9).
type Orchestrator struct {
	Config      *config.Store
	Jobs        *JobRegistry
	Services    *DomainServiceRegistry
	Discovery   *discovery.Service
	FKEngine    *fkbackfill.Engine
	Loader      *loader.Loader
	HookRunner  *hooks.Runner
	DomainHooks map[string][]hooks.Hook
	Logger      observability.Logger
	Metrics     *observability.Metrics
}

// Run executes the graph for one domain and period, returning a
// models.RunSummary regardless of how far it got — a failed stage still
// produces a summary with Status=failed and the partial counts observed so
// far, for the CLI to log and persist (spec §6).
func (o *Orchestrator) Run(ctx context.Context, runID string, opts RunOptions) (*models.RunSummary, error) {
	summary := &models.RunSummary{
		RunID:     runID,
		Domain:    opts.Domain,
		Period:    opts.Period,
		StartedAt: startTime(),
	}

	domainCfg, err := o.Config.GetDomain(opts.Domain)
	if err != nil {
		return o.fail(summary, err)
	}

	caps, ok := o.Jobs.Lookup(opts.Domain)
	if !ok {
		return o.fail(summary, errs.NewConfigError(opts.Domain, "domain has no registered job capabilities", nil))
	}

	discovered, err := o.Discovery.Discover(domainCfg, opts.Period, opts.OverrideFile, caps.SupportsMultiFile)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.RowsDiscovered = discovered.RowCount

	bronzeSchema := validation.BronzeSchema{RequiredColumns: domainCfg.Output.PK}
	bronzeRejections, err := bronzeSchema.Validate(opts.Domain, discovered.Frame)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.RowsRejected += len(bronzeRejections)
	summary.Rejections = append(summary.Rejections, bronzeRejections...)
	summary.RowsBronzePassed = len(discovered.Frame.Rows) - len(bronzeRejections)

	pc := &models.PipelineContext{RunID: runID, Domain: opts.Domain, Period: opts.Period, StartedAt: summary.StartedAt}
	processed, rejections, err := o.Services.Dispatch(ctx, opts.Domain, pc, discovered.Frame)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.RowsRejected += len(rejections)
	summary.Rejections = append(summary.Rejections, rejections...)

	goldSchema := validation.GoldSchema{
		CompositeKey:    domainCfg.Output.PK,
		NotNullColumns:  domainCfg.GoldNotNullColumns,
		MonetaryColumns: domainCfg.GoldMonetaryColumns,
	}
	goldRejections, err := goldSchema.Validate(opts.Domain, processed)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.RowsRejected += len(goldRejections)
	summary.Rejections = append(summary.Rejections, goldRejections...)
	summary.RowsGoldPassed = len(processed.Rows)
	summary.UnknownCompanies = unknownCompanyRows(processed)

	if caps.SupportsBackfill && o.FKEngine != nil && !opts.PlanOnly {
		rules := o.Config.GetForeignKeys(opts.Domain)
		if _, err := o.FKEngine.Run(ctx, opts.Domain, processed, rules); err != nil {
			return o.fail(summary, err)
		}
	}

	if opts.PlanOnly {
		summary.Status = models.RunSucceeded
		summary.FinishedAt = startTime()
		return summary, nil
	}

	loadResult, err := o.Loader.Load(ctx, opts.Domain, processed, domainCfg.Output, domainCfg.CompositeDeleteKeyColumns, opts.LoadMode)
	if err != nil {
		return o.fail(summary, err)
	}
	summary.LoadResult = loadResult

	summary.Status = models.RunSucceeded
	if opts.RunPostHooks {
		domainHooks := o.DomainHooks[opts.Domain]
		results := o.HookRunner.Run(ctx, hooks.RunContext{
			Domain: opts.Domain, Period: opts.Period, RunID: runID,
			RowsGold: summary.RowsGoldPassed, LoadMode: opts.LoadMode,
		}, domainHooks)
		summary.HookResults = results
		for _, r := range results {
			if !r.OK {
				summary.Status = models.RunSucceededWithWarnings
				break
			}
		}
	}

	summary.FinishedAt = startTime()
	return summary, nil
}

func (o *Orchestrator) fail(summary *models.RunSummary, err error) (*models.RunSummary, error) {
	summary.Status = models.RunFailed
	summary.FinishedAt = startTime()
	var staged interface{ ExitCode() int }
	if errors.As(err, &staged) {
		summary.ExitCode = staged.ExitCode()
	} else {
		summary.ExitCode = errs.StageOrchestrator.ExitCode()
	}
	return summary, err
}

// startTime is split out so it's the one clock read per call site; tests
// that need determinism can't fake time.Now directly, but callers never
// compare against a fixed wall-clock value.
func startTime() time.Time { return time.Now() }

// unknownCompanyRows collects the rows whose company_id is a generated
// temp ID, backing the unknown-companies CSV export (spec §6).
func unknownCompanyRows(frame *models.Frame) []models.Row {
	var out []models.Row
	for _, row := range frame.Rows {
		if id, ok := row["company_id"].(string); ok && enrichment.IsTempID(id) {
			out = append(out, row)
		}
	}
	return out
}
