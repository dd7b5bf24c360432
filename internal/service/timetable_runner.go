package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
	"github.com/noah-isme/timetable-engine/pkg/config"
)

// Run outcome labels used in metrics.
const (
	RunStatusCompleted  = "completed"
	RunStatusInfeasible = "infeasible"
	RunStatusFailed     = "failed"
)

// Overall progress reserved for each phase. Generation covers 0-40,
// optimization 40-99; 100 is written only when the job finishes.
const (
	generationShare = 40
	optimizeCeiling = 99
)

type runReporter interface {
	Transition(ctx context.Context, status models.TimetableJobStatus, progress int, message string) error
	Progress(ctx context.Context, progress int, message string)
}

type silentReporter struct{}

func (silentReporter) Transition(context.Context, models.TimetableJobStatus, int, string) error {
	return nil
}

func (silentReporter) Progress(context.Context, int, string) {}

// RunOptions controls one scheduling run.
type RunOptions struct {
	Seed             int64
	SkipOptimization bool
	// RequireComplete stops after generation when any session is unplaced.
	RequireComplete bool
}

// RunResult is the in-memory outcome of a run.
type RunResult struct {
	Problem          *scheduler.Problem
	Schedule         scheduler.Schedule
	Unplaced         []scheduler.Unplaced
	Fitness          scheduler.Fitness
	Optimized        bool
	Generations      int
	Seed             int64
	GenerationTime   time.Duration
	OptimizationTime time.Duration
}

// Complete reports whether every session was placed.
func (r *RunResult) Complete() bool {
	return len(r.Unplaced) == 0
}

// Outcome converts the result into the measurements stored on a job.
func (r *RunResult) Outcome() JobOutcome {
	genMs := r.GenerationTime.Milliseconds()
	outcome := JobOutcome{
		GenerationMs: &genMs,
		Unplaced:     models.UnplacedSessions(r.Unplaced),
	}
	if outcome.Unplaced == nil {
		outcome.Unplaced = models.UnplacedSessions{}
	}
	if r.Optimized {
		optMs := r.OptimizationTime.Milliseconds()
		outcome.OptimizationMs = &optMs
	}
	if len(r.Schedule) > 0 && (r.Complete() || r.Optimized) {
		score := r.Fitness.Score
		outcome.QualityScore = &score
	}
	return outcome
}

// TimetableRunner executes the generator and optimizer for one problem.
// It is stateless between runs and safe for concurrent use.
type TimetableRunner struct {
	optimizer scheduler.Config
	metrics   *MetricsService
	logger    *zap.Logger
}

// OptimizerSettings maps scheduler configuration onto engine settings.
func OptimizerSettings(cfg config.SchedulerConfig) scheduler.Config {
	return scheduler.Config{
		PopulationSize:   cfg.PopulationSize,
		Generations:      cfg.Generations,
		EliteRatio:       cfg.EliteRatio,
		TournamentSize:   cfg.TournamentSize,
		CrossoverRate:    cfg.CrossoverRate,
		MutationRate:     cfg.MutationRate,
		MutationAttempts: cfg.MutationAttempts,
		PerturbRatio:     cfg.PerturbRatio,
		Workers:          cfg.EvalWorkers,
		Seed:             cfg.Seed,
	}
}

// NewTimetableRunner constructs a runner using the given optimizer settings.
func NewTimetableRunner(optimizer scheduler.Config, metrics *MetricsService, logger *zap.Logger) *TimetableRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableRunner{optimizer: optimizer, metrics: metrics, logger: logger}
}

// Run validates input, builds the base schedule and, unless skipped or blocked
// by unplaced sessions, optimizes it. Cancellation is honoured only between
// phases. Malformed input is returned as an error matching
// scheduler.ErrMalformedInput.
func (r *TimetableRunner) Run(ctx context.Context, input models.TimetableProblem, opts RunOptions, reporter runReporter) (*RunResult, error) {
	if reporter == nil {
		reporter = silentReporter{}
	}
	problem, err := input.Build()
	if err != nil {
		return nil, err
	}
	r.logger.Sugar().Infow("timetable run started",
		"courses", len(input.Courses),
		"rooms", len(input.Rooms),
		"faculty_windows", len(input.Availability),
		"fixed_assignments", len(input.Fixed),
		"rules", problem.Rules(),
		"seed", opts.Seed,
	)
	if ineligible := problem.IneligibleSessions(); len(ineligible) > 0 {
		ids := make([]string, len(ineligible))
		for i, session := range ineligible {
			ids[i] = session.ID
		}
		r.logger.Warn("sessions have no eligible room", zap.Strings("sessions", ids))
	}

	if err := reporter.Transition(ctx, models.TimetableJobGeneratingBase, 0, "generating base schedule"); err != nil {
		return nil, fmt.Errorf("record generation start: %w", err)
	}
	started := time.Now()
	base := scheduler.Generate(problem, func(percent int, message string) {
		reporter.Progress(ctx, percent*generationShare/100, message)
	})
	result := &RunResult{
		Problem:        problem,
		Schedule:       base.Schedule,
		Unplaced:       base.Unplaced,
		Seed:           opts.Seed,
		GenerationTime: time.Since(started),
	}
	r.metrics.ObservePhase(PhaseGeneration, result.GenerationTime)
	r.logger.Sugar().Infow("base schedule generated",
		"placed", len(base.Schedule),
		"unplaced", len(base.Unplaced),
		"duration_ms", result.GenerationTime.Milliseconds(),
	)

	summary := fmt.Sprintf("base schedule: %d placed, %d unplaced", len(base.Schedule), len(base.Unplaced))
	if err := reporter.Transition(ctx, models.TimetableJobBaseComplete, generationShare, summary); err != nil {
		return nil, fmt.Errorf("record base schedule: %w", err)
	}

	if (opts.RequireComplete && !base.Complete()) || opts.SkipOptimization {
		result.Fitness = scheduler.Evaluate(problem.Rules(), base.Schedule)
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := reporter.Transition(ctx, models.TimetableJobOptimizing, generationShare, "optimizing schedule"); err != nil {
		return nil, fmt.Errorf("record optimization start: %w", err)
	}
	cfg := r.optimizer
	cfg.Seed = opts.Seed
	optimizer := scheduler.NewOptimizer(problem, cfg)
	started = time.Now()
	optimized := optimizer.Optimize(base.Schedule, func(percent int, message string) {
		reporter.Progress(ctx, generationShare+percent*(optimizeCeiling-generationShare)/100, message)
	})
	result.OptimizationTime = time.Since(started)
	r.metrics.ObservePhase(PhaseOptimization, result.OptimizationTime)

	result.Schedule = optimized.Best
	result.Fitness = optimized.Fitness
	result.Optimized = true
	result.Generations = optimized.Generations
	result.Seed = optimized.Seed
	r.logger.Sugar().Infow("schedule optimized",
		"fitness", optimized.Fitness.Score,
		"generations", optimized.Generations,
		"seed", optimized.Seed,
		"duration_ms", result.OptimizationTime.Milliseconds(),
	)
	return result, nil
}
