// Package hooks runs a domain's ordered post-ETL hooks after a successful
// load: contract-status sync before monthly snapshot refresh (spec §4.9).
// Each hook is idempotent; a failing hook skips the rest and the run's
// overall status becomes "succeeded with hook failures" rather than a hard
// failure, since the load already committed.
package hooks

import (
	"context"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
)

// Hook is one post-load action, adapted from the teacher's
// SummaryReportHook.Run contract: a hook receives the run's context and
// reports only an error; the Runner logs each hook's outcome.
type Hook interface {
	Name() string
	Run(ctx context.Context, run RunContext) error
}

// RunContext carries what a hook needs to know about the run that just
// loaded, without giving it access to the frame or the store directly —
// hooks that need the warehouse open their own Querier against DB.
type RunContext struct {
	Domain    string
	Period    string
	RunID     string
	RowsGold  int
	LoadMode  models.LoadMode
}

// Runner executes a domain's hooks in registration order.
type Runner struct {
	logger observability.Logger
}

// NewRunner builds a Runner.
func NewRunner(logger observability.Logger) *Runner {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Runner{logger: logger}
}

// Run executes hooks in order, stopping at the first failure (spec §4.9:
// "if any hook fails, subsequent hooks are skipped and the failure is
// reported"). It always returns one models.HookResult per hook attempted,
// never aborting the caller's overall run — a hook failure degrades status,
// it does not fail the run, since the transactional load already committed.
func (r *Runner) Run(ctx context.Context, run RunContext, hooks []Hook) []models.HookResult {
	results := make([]models.HookResult, 0, len(hooks))
	for _, h := range hooks {
		start := time.Now()
		err := h.Run(ctx, run)
		result := models.HookResult{
			HookName:   h.Name(),
			OK:         err == nil,
			DurationMS: time.Since(start).Milliseconds(),
		}
		if err != nil {
			result.Error = err.Error()
			r.logger.Warn(ctx, "hooks.failed", map[string]interface{}{
				"domain": run.Domain, "hook": h.Name(), "error": err.Error(),
			})
			results = append(results, result)
			r.logger.Info(ctx, "hooks.aborted_remaining", map[string]interface{}{
				"domain": run.Domain, "failed_hook": h.Name(), "skipped": len(hooks) - len(results),
			})
			break
		}
		r.logger.Info(ctx, "hooks.completed", map[string]interface{}{
			"domain": run.Domain, "hook": h.Name(), "duration_ms": result.DurationMS,
		})
		results = append(results, result)
	}
	return results
}
