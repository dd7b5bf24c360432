package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

// TimetableWorker bridges queue jobs to the runner and persists results.
type TimetableWorker struct {
	jobs            timetableJobStore
	assignments     timetableAssignmentStore
	runner          *TimetableRunner
	metrics         *MetricsService
	requireComplete bool
	logger          *zap.Logger
}

// NewTimetableWorker constructs a worker. When requireComplete is set a run
// with unplaced sessions ends the job as failed.
func NewTimetableWorker(jobStore timetableJobStore, assignments timetableAssignmentStore, runner *TimetableRunner, metrics *MetricsService, requireComplete bool, logger *zap.Logger) *TimetableWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableWorker{
		jobs:            jobStore,
		assignments:     assignments,
		runner:          runner,
		metrics:         metrics,
		requireComplete: requireComplete,
		logger:          logger,
	}
}

// Handle processes a queue job. Run failures are recorded on the job record
// and not returned, so the queue never retries them. A panic fails the job
// before it is reported to the queue.
func (w *TimetableWorker) Handle(ctx context.Context, job jobs.Job) (err error) {
	record, err := w.jobs.GetByID(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("load timetable job %s: %w", job.ID, err)
	}
	if record.Status.Terminal() {
		w.logger.Sugar().Infow("skipping finished timetable job", "job_id", record.ID, "status", record.Status)
		return nil
	}
	tracker := NewJobTracker(w.jobs, record, w.logger)
	defer func() {
		if rec := recover(); rec != nil {
			w.metrics.RecordRun(RunStatusFailed, 0, 0)
			w.fail(ctx, tracker, record.ID, fmt.Sprintf("run panicked: %v", rec), JobOutcome{})
			err = fmt.Errorf("timetable job %s panicked: %v", record.ID, rec)
		}
	}()

	result, err := w.runner.Run(ctx, record.Problem, RunOptions{
		Seed:             record.Seed,
		SkipOptimization: record.Problem.SkipOptimization,
		RequireComplete:  w.requireComplete,
	}, tracker)
	if err != nil {
		w.metrics.RecordRun(RunStatusFailed, 0, 0)
		w.fail(ctx, tracker, record.ID, err.Error(), JobOutcome{})
		return nil
	}

	outcome := result.Outcome()
	if !result.Complete() && w.requireComplete {
		w.metrics.RecordRun(RunStatusInfeasible, 0, len(result.Unplaced))
		msg := fmt.Sprintf("%d course sessions could not be placed", len(result.Unplaced))
		w.fail(ctx, tracker, record.ID, msg, outcome)
		return nil
	}

	started := time.Now()
	rows := models.AssignmentsFromSchedule(record.ID, result.Schedule)
	err = w.assignments.ReplaceForJob(ctx, record.ID, rows)
	w.metrics.ObservePhase(PhasePersistence, time.Since(started))
	if err != nil {
		w.metrics.RecordRun(RunStatusFailed, 0, len(result.Unplaced))
		w.fail(ctx, tracker, record.ID, fmt.Sprintf("persist assignments: %v", err), outcome)
		return nil
	}

	msg := fmt.Sprintf("timetable completed with %d assignments", len(result.Schedule))
	if !result.Complete() {
		msg = fmt.Sprintf("%s, %d unplaced", msg, len(result.Unplaced))
	}
	if err = tracker.Complete(ctx, msg, outcome); err != nil {
		w.logger.Sugar().Errorw("failed to mark timetable job completed", "job_id", record.ID, "error", err)
		return err
	}
	w.metrics.RecordRun(RunStatusCompleted, result.Fitness.Score, len(result.Unplaced))
	return nil
}

func (w *TimetableWorker) fail(ctx context.Context, tracker *JobTracker, jobID, message string, outcome JobOutcome) {
	w.logger.Sugar().Warnw("timetable job failed", "job_id", jobID, "reason", message)
	if err := tracker.Fail(ctx, message, outcome); err != nil {
		w.logger.Sugar().Errorw("failed to mark timetable job failed", "job_id", jobID, "error", err)
	}
}
