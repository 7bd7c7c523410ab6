// Command workdatahub is the ETL orchestrator's CLI entry point (spec §6):
// it loads configuration, wires every component, runs one or more domains
// for one period, and exits with the stage-mapped code the failing
// component reported.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/linsuisheng034/workdatahub/internal/cliflags"
	"github.com/linsuisheng034/workdatahub/internal/config"
	"github.com/linsuisheng034/workdatahub/internal/discovery"
	"github.com/linsuisheng034/workdatahub/internal/domains"
	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/fkbackfill"
	"github.com/linsuisheng034/workdatahub/internal/hooks"
	"github.com/linsuisheng034/workdatahub/internal/loader"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
	"github.com/linsuisheng034/workdatahub/internal/pipeline"
	"github.com/linsuisheng034/workdatahub/internal/registry"
	"github.com/linsuisheng034/workdatahub/internal/reporting"
	"github.com/linsuisheng034/workdatahub/internal/store/postgres"
)

func main() {
	opts, err := cliflags.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(errs.StageConfig.ExitCode())
	}

	cfg, err := config.LoadAll(".env", config.DefaultPaths())
	if err != nil {
		fail(err)
	}

	logger := observability.NewEventLogger(cfg.Env().LogLevel)
	metrics := observability.NewMetrics(nil)

	tp, err := observability.InitTracer("workdatahub", os.Stdout)
	if err != nil {
		fail(errs.NewConfigError("tracing", "failed to init tracer", err))
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx := context.Background()

	if opts.CheckDB {
		store, err := postgres.Open(cfg.Env().DatabaseURI)
		if err != nil {
			fail(errs.NewLoadError("", "database check failed", err))
		}
		defer store.Close()
		fmt.Println("database connection OK")
		return
	}

	exitCode := 0
	for _, domain := range opts.TargetDomains() {
		summary, runErr := runOne(ctx, cfg, logger, metrics, domain, opts)
		code := persistAndSummarize(logger, cfg.Env().LogTargetDir, summary, runErr)
		if code > exitCode {
			exitCode = code
		}
	}
	os.Exit(exitCode)
}

// runOne builds every component fresh for one domain run — cheap relative
// to one ETL pass, and it lets --no-enrichment and --sync-budget vary the
// resolver per invocation without a shared-mutable-state footgun.
func runOne(ctx context.Context, cfg *config.Store, logger observability.Logger, metrics *observability.Metrics, domain string, opts cliflags.Options) (*models.RunSummary, error) {
	store, err := postgres.Open(cfg.Env().DatabaseURI)
	if err != nil {
		return nil, errs.NewLoadError(domain, "failed to open warehouse connection", err)
	}
	defer store.Close()

	resolver := buildResolver(cfg, store, opts)

	jobs := registry.NewJobRegistry()
	services := registry.NewDomainServiceRegistry()
	deps := domains.Dependencies{Resolver: resolver, Logger: logger, Metrics: metrics, Mode: pipeline.StopOnError}
	domains.RegisterAll(jobs, services, deps)

	if err := registry.ValidateStartup(cfg, jobs, services, func(msg string) {
		logger.Warn(ctx, "registry.startup_warning", map[string]interface{}{"message": msg})
	}); err != nil {
		return nil, errs.NewConfigError("registry", "startup validation failed", err)
	}

	discoverySvc := discovery.NewService(logger)
	discoverySvc.MaxFiles = opts.MaxFiles

	orch := &registry.Orchestrator{
		Config:     cfg,
		Jobs:       jobs,
		Services:   services,
		Discovery:  discoverySvc,
		FKEngine:   fkbackfill.NewEngine(store.DB, logger, metrics),
		Loader:     loader.NewLoader(loader.Options{DB: store.DB, Logger: logger, Metrics: metrics}),
		HookRunner: hooks.NewRunner(logger),
		DomainHooks: map[string][]hooks.Hook{
			"annuity_performance": {hooks.NewContractSyncHook(store.DB), hooks.NewMonthlySnapshotHook(store.DB)},
			"annuity_income":      {hooks.NewContractSyncHook(store.DB), hooks.NewMonthlySnapshotHook(store.DB)},
		},
		Logger:  logger,
		Metrics: metrics,
	}

	runID := fmt.Sprintf("%s-%s-%s", domain, opts.Period, uuid.NewString())
	runOpts := registry.RunOptions{
		Domain:       domain,
		Period:       opts.Period,
		OverrideFile: opts.File,
		LoadMode:     models.LoadMode(opts.Mode),
		PlanOnly:     !opts.Execute,
		RunPostHooks: !opts.NoPostHooks,
	}
	summary, err := orch.Run(ctx, runID, runOpts)
	if summary != nil {
		summary.ResolverCounters = resolver.Counters().AsMap()
	}
	return summary, err
}

// buildResolver constructs a per-run Resolver; --no-enrichment forces
// Layer 5 only, and --sync-budget (when non-zero) overrides the
// configured default EQC call budget (spec §6).
func buildResolver(cfg *config.Store, store *postgres.Store, opts cliflags.Options) *enrichment.Resolver {
	env := cfg.Env()
	var eqcClient enrichment.EQCClient
	if !opts.NoEnrichment && env.EQCAPIBaseURL != "" && env.EQCAPIToken != "" {
		eqcClient = enrichment.NewHTTPEQCClient(env.EQCAPIBaseURL, env.EQCAPIToken, 5*time.Second)
	}
	budget := env.SyncBudgetDefault
	if opts.SyncBudget > 0 {
		budget = opts.SyncBudget
	}
	return enrichment.NewResolver(enrichment.Options{
		Mapping:     cfg.CompanyMapping(),
		Cache:       postgres.NewEnrichmentIndexStore(store.DB),
		EQCClient:   eqcClient,
		EQCConf:     cfg.EQCConfidence(),
		Queue:       postgres.NewEnrichmentRequestStore(store.DB),
		Salt:        env.EnrichmentSalt,
		Budget:      budget,
		ForceLayer5: opts.NoEnrichment,
	})
}

// persistAndSummarize writes the run's artifacts, logs the outcome, prints
// the spec §7 single-line exit summary, and returns the process exit code
// to contribute to the overall run.
func persistAndSummarize(logger observability.Logger, logDir string, summary *models.RunSummary, runErr error) int {
	if summary == nil {
		logger.Error(context.Background(), "run.failed_before_summary", runErr, nil)
		code := errs.StageOrchestrator.ExitCode()
		var staged interface{ ExitCode() int }
		if errors.As(runErr, &staged) {
			code = staged.ExitCode()
		}
		return code
	}

	paths := reporting.ResolvePaths(logDir, summary.Domain, summary.StartedAt)
	if err := reporting.WriteSummary(paths.Summary, summary); err != nil {
		logger.Warn(context.Background(), "reporting.write_summary_failed", map[string]interface{}{"error": err.Error()})
	}
	if err := reporting.WriteRejectedRows(paths.RejectedRows, summary.Rejections); err != nil {
		logger.Warn(context.Background(), "reporting.write_rejected_rows_failed", map[string]interface{}{"error": err.Error()})
	}
	if err := reporting.WriteUnknownCompanies(paths.UnknownCompanies, summary.UnknownCompanies); err != nil {
		logger.Warn(context.Background(), "reporting.write_unknown_companies_failed", map[string]interface{}{"error": err.Error()})
	}

	logger.Info(context.Background(), "run.summary", map[string]interface{}{
		"run_id": summary.RunID, "domain": summary.Domain, "period": summary.Period,
		"status": string(summary.Status), "rows_discovered": summary.RowsDiscovered,
		"rows_gold_passed": summary.RowsGoldPassed, "rows_rejected": summary.RowsRejected,
		"exit_code": summary.ExitCode,
	})
	if runErr != nil {
		logger.Error(context.Background(), "run.failed", runErr, map[string]interface{}{"domain": summary.Domain})
	}
	fmt.Println(reporting.Summarize(summary, paths.RejectedRows))
	return summary.ExitCode
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	code := errs.StageOrchestrator.ExitCode()
	var staged interface{ ExitCode() int }
	if errors.As(err, &staged) {
		code = staged.ExitCode()
	}
	os.Exit(code)
}
