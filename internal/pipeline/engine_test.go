package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

func upperCaseStep() Step {
	return NewStepFunc("uppercase_name", func(_ context.Context, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
		for _, row := range frame.Rows {
			if v, ok := row["name"].(string); ok {
				row["name"] = v + "!"
			}
		}
		return frame, nil, nil
	})
}

func TestEngineRunAppliesStepsInOrder(t *testing.T) {
	frame := models.NewFrame([]string{"name"}, []models.Row{{"name": "a"}, {"name": "b"}})
	engine := NewEngine(nil, nil, StopOnError)
	pc := &models.PipelineContext{Domain: "test_domain"}

	out, rejections, err := engine.Run(context.Background(), pc, frame, []Spec{{Step: upperCaseStep()}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rejections) != 0 {
		t.Fatalf("unexpected rejections: %v", rejections)
	}
	if out.Rows[0]["name"] != "a!" || out.Rows[1]["name"] != "b!" {
		t.Fatalf("unexpected output rows: %v", out.Rows)
	}
	if len(pc.StepMetrics) != 1 || pc.StepMetrics[0].StepName != "uppercase_name" {
		t.Fatalf("expected one step metric recorded, got %v", pc.StepMetrics)
	}
}

func TestEngineStopOnErrorAbortsRun(t *testing.T) {
	failing := NewStepFunc("always_fails", func(_ context.Context, _ *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
		return nil, nil, errors.New("boom")
	})
	frame := models.NewFrame([]string{"name"}, []models.Row{{"name": "a"}})
	engine := NewEngine(nil, nil, StopOnError)
	pc := &models.PipelineContext{Domain: "test_domain"}

	_, _, err := engine.Run(context.Background(), pc, frame, []Spec{{Step: failing}})
	if err == nil {
		t.Fatal("expected error to propagate in stop_on_error mode")
	}
	var pe *errs.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *errs.PipelineError, got %T", err)
	}
}

func TestEngineOptionalStepFailureIsSkipped(t *testing.T) {
	failing := NewStepFunc("optional_step", func(_ context.Context, _ *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
		return nil, nil, errors.New("boom")
	})
	frame := models.NewFrame([]string{"name"}, []models.Row{{"name": "a"}})
	engine := NewEngine(nil, nil, StopOnError)
	pc := &models.PipelineContext{Domain: "test_domain"}

	out, _, err := engine.Run(context.Background(), pc, frame, []Spec{{Step: failing, Optional: true}})
	if err != nil {
		t.Fatalf("optional step failure should not abort the run: %v", err)
	}
	if len(out.Rows) != 1 {
		t.Fatalf("expected original frame preserved after optional step skip, got %v", out.Rows)
	}
	if !pc.StepMetrics[0].Skipped {
		t.Fatal("expected step metric to be marked skipped")
	}
}

func TestEngineCollectErrorsContinuesPastFailure(t *testing.T) {
	failing := NewStepFunc("step_1_fails", func(_ context.Context, _ *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
		return nil, nil, errors.New("boom")
	})
	frame := models.NewFrame([]string{"name"}, []models.Row{{"name": "a"}})
	engine := NewEngine(nil, nil, CollectErrors)
	pc := &models.PipelineContext{Domain: "test_domain"}

	out, _, err := engine.Run(context.Background(), pc, frame, []Spec{{Step: failing}, {Step: upperCaseStep()}})
	if err != nil {
		t.Fatalf("collect_errors mode should not abort: %v", err)
	}
	if out.Rows[0]["name"] != "a!" {
		t.Fatalf("expected subsequent step to still run, got %v", out.Rows)
	}
}
