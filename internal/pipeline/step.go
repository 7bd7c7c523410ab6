// Package pipeline executes a domain's ordered list of frame transforms
// (spec §4.5), cloning the frame between steps so a failed step never
// observes a partially mutated input, classifying step errors into the
// errs retry taxonomy, and recording per-step metrics.
package pipeline

import (
	"context"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// ErrorMode controls what happens when a step returns an error.
type ErrorMode string

const (
	// StopOnError aborts the run at the first failing step.
	StopOnError ErrorMode = "stop_on_error"
	// CollectErrors runs every step regardless, accumulating rejections.
	CollectErrors ErrorMode = "collect_errors"
)

// Step is one named frame transform. It receives a cloned frame (spec §4.5
// immutability invariant: "each step receives its own copy and may mutate
// it freely") and returns the transformed frame plus any rejected rows it
// produced.
type Step interface {
	Name() string
	Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error)
}

// StepFunc adapts a plain function to the Step interface for steps with no
// state worth a dedicated type.
type StepFunc struct {
	name string
	fn   func(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error)
}

// NewStepFunc builds a Step from a name and a transform function.
func NewStepFunc(name string, fn func(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error)) StepFunc {
	return StepFunc{name: name, fn: fn}
}

func (s StepFunc) Name() string { return s.name }

func (s StepFunc) Run(ctx context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	return s.fn(ctx, frame)
}

// OptionalStep wraps a Step whose failure is logged and skipped rather than
// propagated, for steps spec §4.5 marks optional in a domain's definition.
type OptionalStep struct {
	Step
}

// Spec describes one step's placement in a domain's sequence: the step
// itself, whether it is optional, and whether failures should be retried
// per the pipeline framework's transient-fault policy. Tier selects the
// attempt budget from the retry classification table (spec §4.5) when
// Retryable is set; it is ignored otherwise.
type Spec struct {
	Step      Step
	Optional  bool
	Retryable bool
	Tier      errs.RetryTier
}
