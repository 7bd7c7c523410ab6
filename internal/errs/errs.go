// Package errs defines WorkDataHub's error taxonomy (spec §7). Every error
// surfaced past a component boundary is one of these types so the
// orchestrator can map it to an exit code and a stage-tagged log line
// without inspecting string messages.
package errs

import (
	"errors"
	"fmt"
)

// Stage identifies which part of a run produced an error.
type Stage string

const (
	StageConfig       Stage = "config"
	StageDiscovery    Stage = "discovery"
	StageValidation   Stage = "validation"
	StagePipeline     Stage = "pipeline"
	StageTransient    Stage = "transient"
	StageBackfill     Stage = "backfill"
	StageLoad         Stage = "load"
	StageEnrichment   Stage = "enrichment"
	StageHook         Stage = "hook"
	StageOrchestrator Stage = "orchestrator"
)

// ExitCode maps a Stage to the process exit code defined in spec §6.
func (s Stage) ExitCode() int {
	switch s {
	case StageConfig:
		return 2
	case StageDiscovery:
		return 3
	case StageValidation:
		return 4
	case StageLoad, StageBackfill:
		return 5
	case StagePipeline, StageTransient, StageEnrichment, StageHook, StageOrchestrator:
		return 6
	default:
		return 6
	}
}

// StagedError is the common shape every taxonomy error implements: a stage
// tag, a human message, and an optional wrapped cause.
type StagedError struct {
	Stage   Stage
	Message string
	Cause   error
}

func (e *StagedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *StagedError) Unwrap() error { return e.Cause }

// ExitCode implements the orchestrator's error->exit-code contract.
func (e *StagedError) ExitCode() int { return e.Stage.ExitCode() }

func newStaged(stage Stage, msg string, cause error) *StagedError {
	return &StagedError{Stage: stage, Message: msg, Cause: cause}
}

// ConfigError wraps structural/semantic configuration failures. Fatal at
// startup; carries the dotted path to the offending key.
type ConfigError struct {
	*StagedError
	Path string
}

func NewConfigError(path, msg string, cause error) *ConfigError {
	return &ConfigError{StagedError: newStaged(StageConfig, msg, cause), Path: path}
}

func (e *ConfigError) Error() string {
	if e.Path == "" {
		return e.StagedError.Error()
	}
	return fmt.Sprintf("[%s] %s (at %s)", e.Stage, e.Message, e.Path)
}

// DiscoveryFailedStage enumerates where within discovery a failure occurred.
type DiscoveryFailedStage string

const (
	FailedConfigResolution DiscoveryFailedStage = "config_resolution"
	FailedVersionDetection DiscoveryFailedStage = "version_detection"
	FailedFileMatching     DiscoveryFailedStage = "file_matching"
	FailedAmbiguousMatch   DiscoveryFailedStage = "ambiguous_match"
	FailedSheetReading     DiscoveryFailedStage = "sheet_reading"
	FailedNormalization    DiscoveryFailedStage = "normalization"
)

// DiscoveryError carries the domain and the discovery sub-stage that failed.
type DiscoveryError struct {
	*StagedError
	Domain       string
	FailedStage  DiscoveryFailedStage
	OriginalErr  error
}

func NewDiscoveryError(domain string, stage DiscoveryFailedStage, msg string, cause error) *DiscoveryError {
	return &DiscoveryError{
		StagedError: newStaged(StageDiscovery, msg, cause),
		Domain:      domain,
		FailedStage: stage,
		OriginalErr: cause,
	}
}

// ValidationError represents a schema violation or aggregate row-rejection
// threshold breach.
type ValidationError struct {
	*StagedError
	Domain         string
	RejectedRows   int
	TotalRows      int
	ThresholdBreach bool
}

func NewValidationError(domain, msg string, rejected, total int, thresholdBreach bool, cause error) *ValidationError {
	return &ValidationError{
		StagedError:     newStaged(StageValidation, msg, cause),
		Domain:          domain,
		RejectedRows:    rejected,
		TotalRows:       total,
		ThresholdBreach: thresholdBreach,
	}
}

// PipelineError represents a step execution failure under stop_on_error mode.
type PipelineError struct {
	*StagedError
	StepName  string
	StepIndex int
}

func NewPipelineError(stepName string, stepIndex int, cause error) *PipelineError {
	return &PipelineError{
		StagedError: newStaged(StagePipeline, fmt.Sprintf("step %q failed", stepName), cause),
		StepName:    stepName,
		StepIndex:   stepIndex,
	}
}

// RetryTier classifies a TransientError for the pipeline framework's retry
// policy (spec §4.5).
type RetryTier string

const (
	TierDatabase RetryTier = "database"
	TierNetwork  RetryTier = "network"
	TierHTTP5xx  RetryTier = "http_5xx"
	TierHTTP429  RetryTier = "http_429_503"
	TierNone     RetryTier = "none"
)

// TransientError represents a classified transient fault that the pipeline
// framework retries per policy before surfacing.
type TransientError struct {
	*StagedError
	Tier     RetryTier
	Attempts int
}

func NewTransientError(tier RetryTier, attempts int, cause error) *TransientError {
	return &TransientError{
		StagedError: newStaged(StageTransient, fmt.Sprintf("transient fault (tier=%s, attempts=%d)", tier, attempts), cause),
		Tier:        tier,
		Attempts:    attempts,
	}
}

// IsTransient reports whether err (or a wrapped cause) is a classified
// transient fault.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// BackfillError aborts the run before fact load.
type BackfillError struct {
	*StagedError
	RuleName string
}

func NewBackfillError(ruleName, msg string, cause error) *BackfillError {
	return &BackfillError{StagedError: newStaged(StageBackfill, msg, cause), RuleName: ruleName}
}

// LoadError represents a database failure during fact write; the caller
// must already have rolled back the transaction before returning it.
type LoadError struct {
	*StagedError
	Table string
}

func NewLoadError(table, msg string, cause error) *LoadError {
	return &LoadError{StagedError: newStaged(StageLoad, msg, cause), Table: table}
}

// EnrichmentProviderError marks an EQC-class API auth/protocol failure, or a
// call rejected while the provider's circuit breaker is open. The resolver
// counts it as an API failure and falls back to Layer 5 for that request;
// later requests still call the provider.
type EnrichmentProviderError struct {
	*StagedError
	Provider string
}

func NewEnrichmentProviderError(provider, msg string, cause error) *EnrichmentProviderError {
	return &EnrichmentProviderError{StagedError: newStaged(StageEnrichment, msg, cause), Provider: provider}
}

// HookError marks a post-ETL hook failure; subsequent hooks are skipped.
type HookError struct {
	*StagedError
	HookName string
}

func NewHookError(hookName, msg string, cause error) *HookError {
	return &HookError{StagedError: newStaged(StageHook, msg, cause), HookName: hookName}
}

