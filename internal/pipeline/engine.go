package pipeline

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
)

// Engine runs one domain's step sequence in order, threading a
// models.PipelineContext through for per-step metrics.
type Engine struct {
	logger  observability.Logger
	metrics *observability.Metrics
	mode    ErrorMode
}

// NewEngine constructs an Engine. A nil logger or metrics is replaced with
// a harmless default so tests can omit them.
func NewEngine(logger observability.Logger, metrics *observability.Metrics, mode ErrorMode) *Engine {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	if mode == "" {
		mode = StopOnError
	}
	return &Engine{logger: logger, metrics: metrics, mode: mode}
}

// Run executes specs in order against frame, cloning before each step so a
// step never mutates its caller's copy, and returns the final frame, the
// full set of accumulated rejections, and the first fatal error (stop_on_
// error mode only — collect_errors mode never returns early).
func (e *Engine) Run(ctx context.Context, pc *models.PipelineContext, frame *models.Frame, specs []Spec) (*models.Frame, []models.RejectionRecord, error) {
	current := frame
	var allRejections []models.RejectionRecord

	for i, spec := range specs {
		start := time.Now()
		clone := current.Clone()
		inputRows := len(clone.Rows)

		out, rejections, err := e.runOne(ctx, spec, clone)
		metric := models.StepMetric{
			StepName:     spec.Step.Name(),
			StepIndex:    i,
			DurationMS:   time.Since(start).Milliseconds(),
			InputRows:    inputRows,
			RejectedRows: len(rejections),
		}

		if err != nil {
			if _, wrapped := spec.Step.(OptionalStep); spec.Optional || wrapped {
				e.logger.Warn(ctx, "pipeline.step.optional_failed", map[string]interface{}{"step": spec.Step.Name(), "error": err.Error()})
				metric.Skipped = true
				pc.StepMetrics = append(pc.StepMetrics, metric)
				e.recordMetric(pc.Domain, spec.Step.Name(), metric, "skipped")
				continue
			}
			if e.mode == CollectErrors {
				e.logger.Warn(ctx, "pipeline.step.collected_error", map[string]interface{}{"step": spec.Step.Name(), "error": err.Error()})
				pc.StepMetrics = append(pc.StepMetrics, metric)
				e.recordMetric(pc.Domain, spec.Step.Name(), metric, "error")
				allRejections = append(allRejections, rejections...)
				continue
			}
			pc.StepMetrics = append(pc.StepMetrics, metric)
			e.recordMetric(pc.Domain, spec.Step.Name(), metric, "error")
			return current, allRejections, errs.NewPipelineError(spec.Step.Name(), i, err)
		}

		current = out
		metric.OutputRows = len(current.Rows)
		pc.StepMetrics = append(pc.StepMetrics, metric)
		e.recordMetric(pc.Domain, spec.Step.Name(), metric, "ok")
		allRejections = append(allRejections, rejections...)
	}

	return current, allRejections, nil
}

// runOne executes spec.Step, retrying with exponential backoff when the
// step is marked Retryable and its error classifies as transient (spec
// §4.5 retry classification table).
func (e *Engine) runOne(ctx context.Context, spec Spec, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	if !spec.Retryable {
		return spec.Step.Run(ctx, frame)
	}

	var (
		out        *models.Frame
		rejections []models.RejectionRecord
		attempts   int
	)
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = time.Second
	bo.Multiplier = 2
	bo.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		attempts++
		var err error
		out, rejections, err = spec.Step.Run(ctx, frame)
		if err != nil && errs.IsTransient(err) {
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		return nil
	}

	maxAttempts, ok := tierAttempts[spec.Tier]
	if !ok {
		maxAttempts = 3
	}

	err := backoff.Retry(operation, backoff.WithMaxRetries(bo, uint64(maxAttempts-1)))
	if e.metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "failed"
		}
		e.metrics.RetryAttempts.WithLabelValues(string(spec.Tier), outcome).Add(float64(attempts))
	}
	return out, rejections, err
}

var tierAttempts = map[errs.RetryTier]int{
	errs.TierDatabase: 5,
	errs.TierNetwork:  3,
	errs.TierHTTP429:  3,
	errs.TierHTTP5xx:  2,
}

func (e *Engine) recordMetric(domain, step string, m models.StepMetric, outcome string) {
	if e.metrics == nil {
		return
	}
	e.metrics.StepDuration.WithLabelValues(domain, step).Observe(float64(m.DurationMS) / 1000.0)
	e.metrics.StepRows.WithLabelValues(domain, step, outcome).Add(float64(m.OutputRows))
}
