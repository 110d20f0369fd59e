package shipway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Stage is one unit of deployment work. Stages run in order; the first fatal
// failure halts the pipeline.
type Stage interface {
	// Name identifies the stage in logs and reports.
	Name() string

	// Run performs the stage. Returning a *PartialError marks the stage
	// partial without halting the pipeline; any other error is fatal.
	Run(ctx context.Context) error
}

// StageFunc adapts a named function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context) error
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context) error { return s.Fn(ctx) }

// StageStatus describes the outcome of a single stage.
type StageStatus int

const (
	// StatusOK indicates the stage completed fully.
	StatusOK StageStatus = iota
	// StatusPartial indicates the stage completed with batched per-item
	// failures (e.g. some host probes failed).
	StatusPartial
	// StatusFailed indicates a fatal stage error that halted the pipeline.
	StatusFailed
	// StatusSkipped indicates the stage never ran because an earlier stage
	// failed.
	StatusSkipped
)

func (s StageStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusPartial:
		return "partial"
	case StatusFailed:
		return "failed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// StageResult records the outcome of one stage run.
type StageResult struct {
	Stage    string
	Status   StageStatus
	Err      error
	Duration time.Duration
}

// Report summarizes a pipeline run for the invoking orchestration layer.
type Report struct {
	ID      string
	Results []StageResult
}

// Failed returns the result of the stage that halted the pipeline, or nil.
func (r *Report) Failed() *StageResult {
	for i := range r.Results {
		if r.Results[i].Status == StatusFailed {
			return &r.Results[i]
		}
	}

	return nil
}

// Partial returns true when any stage completed with batched failures.
func (r *Report) Partial() bool {
	for i := range r.Results {
		if r.Results[i].Status == StatusPartial {
			return true
		}
	}

	return false
}

// Pipeline runs deployment stages sequentially.
//
// There is no rollback and no compensation: a failure halts the run, earlier
// stages stand, and the report says how far the run got. There are no internal
// timeouts either; callers bound the run with a context deadline.
type Pipeline struct {
	stages []Stage
	log    *slog.Logger
	runID  string
}

// NewPipeline creates a pipeline over the given stages.
func NewPipeline(stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		stages: stages,
		log:    slog.Default(),
	}

	for _, o := range opts {
		o(p)
	}

	return p
}

// Run executes the stages in order and returns the report plus the first fatal
// error, if any. Stages after a fatal failure are reported as skipped.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		ID:      p.runID,
		Results: make([]StageResult, 0, len(p.stages)),
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}

	log := p.log.With("run", report.ID)

	var fatal error

	for _, stage := range p.stages {
		if fatal != nil {
			report.Results = append(report.Results, StageResult{
				Stage:  stage.Name(),
				Status: StatusSkipped,
			})

			continue
		}

		if err := ctx.Err(); err != nil {
			fatal = err
			report.Results = append(report.Results, StageResult{
				Stage:  stage.Name(),
				Status: StatusFailed,
				Err:    err,
			})

			continue
		}

		log.Info("stage starting", "stage", stage.Name())

		start := time.Now()
		err := stage.Run(ctx)
		elapsed := time.Since(start)

		switch {
		case err == nil:
			report.Results = append(report.Results, StageResult{
				Stage:    stage.Name(),
				Status:   StatusOK,
				Duration: elapsed,
			})
			log.Info("stage complete", "stage", stage.Name(), "duration", elapsed)
		case isPartial(err):
			report.Results = append(report.Results, StageResult{
				Stage:    stage.Name(),
				Status:   StatusPartial,
				Err:      err,
				Duration: elapsed,
			})
			log.Warn("stage partially complete", "stage", stage.Name(), "duration", elapsed, "error", err)
		default:
			fatal = fmt.Errorf("stage %s: %w", stage.Name(), err)
			report.Results = append(report.Results, StageResult{
				Stage:    stage.Name(),
				Status:   StatusFailed,
				Err:      err,
				Duration: elapsed,
			})
			log.Error("stage failed", "stage", stage.Name(), "duration", elapsed, "error", err)
		}
	}

	return report, fatal
}

func isPartial(err error) bool {
	var pe *PartialError

	return errors.As(err, &pe)
}
