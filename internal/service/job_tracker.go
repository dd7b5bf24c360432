package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
)

type jobStatusWriter interface {
	Update(ctx context.Context, id string, params repository.UpdateTimetableJobParams) error
}

// JobOutcome carries the measurements recorded when a job finishes.
type JobOutcome struct {
	GenerationMs   *int64
	OptimizationMs *int64
	QualityScore   *float64
	Unplaced       models.UnplacedSessions
}

// JobTracker records lifecycle state and progress for one job. Every update is
// written through to the store while holding the tracker lock, so readers of
// the store observe updates in order. Progress never decreases and nothing is
// written once the job is terminal.
type JobTracker struct {
	mu       sync.Mutex
	store    jobStatusWriter
	jobID    string
	status   models.TimetableJobStatus
	progress int
	message  string
	logger   *zap.Logger
}

// NewJobTracker resumes tracking from the job's persisted state.
func NewJobTracker(store jobStatusWriter, job *models.TimetableJob, logger *zap.Logger) *JobTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobTracker{
		store:    store,
		jobID:    job.ID,
		status:   job.Status,
		progress: job.Progress,
		message:  job.Message,
		logger:   logger,
	}
}

// Snapshot returns the last recorded state.
func (t *JobTracker) Snapshot() (models.TimetableJobStatus, int, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, t.progress, t.message
}

// Transition moves the job into a non-terminal status.
func (t *JobTracker) Transition(ctx context.Context, status models.TimetableJobStatus, progress int, message string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return nil
	}
	progress = t.clamp(progress)
	if err := t.store.Update(ctx, t.jobID, repository.UpdateTimetableJobParams{
		Status:   &status,
		Progress: &progress,
		Message:  &message,
	}); err != nil {
		return err
	}
	t.status, t.progress, t.message = status, progress, message
	t.logger.Sugar().Infow("timetable job transition", "job_id", t.jobID, "status", status, "progress", progress)
	return nil
}

// Progress advances the percentage within the current status. Updates that do
// not move the percentage forward are dropped, and store errors are logged
// because progress reporting never affects the run.
func (t *JobTracker) Progress(ctx context.Context, progress int, message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() || progress <= t.progress {
		return
	}
	progress = t.clamp(progress)
	if err := t.store.Update(ctx, t.jobID, repository.UpdateTimetableJobParams{
		Progress: &progress,
		Message:  &message,
	}); err != nil {
		t.logger.Sugar().Warnw("failed to record job progress", "job_id", t.jobID, "progress", progress, "error", err)
		return
	}
	t.progress, t.message = progress, message
}

// Complete marks the job completed.
func (t *JobTracker) Complete(ctx context.Context, message string, outcome JobOutcome) error {
	return t.finish(ctx, models.TimetableJobCompleted, message, outcome)
}

// Fail marks the job failed with the underlying message.
func (t *JobTracker) Fail(ctx context.Context, message string, outcome JobOutcome) error {
	return t.finish(ctx, models.TimetableJobFailed, message, outcome)
}

func (t *JobTracker) finish(ctx context.Context, status models.TimetableJobStatus, message string, outcome JobOutcome) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.Terminal() {
		return nil
	}
	progress := 100
	now := time.Now().UTC()
	params := repository.UpdateTimetableJobParams{
		Status:         &status,
		Progress:       &progress,
		Message:        &message,
		GenerationMs:   outcome.GenerationMs,
		OptimizationMs: outcome.OptimizationMs,
		QualityScore:   outcome.QualityScore,
		FinishedAt:     &now,
	}
	if outcome.Unplaced != nil {
		params.Unplaced = &outcome.Unplaced
	}
	if err := t.store.Update(ctx, t.jobID, params); err != nil {
		return err
	}
	t.status, t.progress, t.message = status, progress, message
	t.logger.Sugar().Infow("timetable job finished", "job_id", t.jobID, "status", status, "message", message)
	return nil
}

func (t *JobTracker) clamp(progress int) int {
	if progress > 100 {
		progress = 100
	}
	if progress < t.progress {
		progress = t.progress
	}
	return progress
}
