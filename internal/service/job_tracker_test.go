package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

func newTrackedJob(t *testing.T, store *timetableJobStoreStub) *models.TimetableJob {
	t.Helper()
	job := &models.TimetableJob{Status: models.TimetableJobCreated}
	require.NoError(t, store.Create(context.Background(), job))
	return job
}

func TestJobTrackerProgressIsMonotonic(t *testing.T) {
	store := newTimetableJobStoreStub()
	job := newTrackedJob(t, store)
	tracker := NewJobTracker(store, job, nil)
	ctx := context.Background()

	require.NoError(t, tracker.Transition(ctx, models.TimetableJobGeneratingBase, 0, "generating"))
	tracker.Progress(ctx, 20, "half way")
	tracker.Progress(ctx, 10, "stale")
	tracker.Progress(ctx, 20, "same")
	require.NoError(t, tracker.Transition(ctx, models.TimetableJobBaseComplete, 5, "base done"))

	status, progress, message := tracker.Snapshot()
	assert.Equal(t, models.TimetableJobBaseComplete, status)
	assert.Equal(t, 20, progress)
	assert.Equal(t, "base done", message)
	assert.Equal(t, []int{0, 20, 20}, store.progress)
	assert.Equal(t, 20, store.get(job.ID).Progress)
}

func TestJobTrackerIgnoresUpdatesAfterTerminal(t *testing.T) {
	store := newTimetableJobStoreStub()
	job := newTrackedJob(t, store)
	tracker := NewJobTracker(store, job, nil)
	ctx := context.Background()

	unplaced := models.UnplacedSessions{{SessionID: "lab1", Reasons: []string{"no eligible room"}}}
	require.NoError(t, tracker.Fail(ctx, "1 course sessions could not be placed", JobOutcome{Unplaced: unplaced}))
	require.NoError(t, tracker.Complete(ctx, "late", JobOutcome{}))
	require.NoError(t, tracker.Transition(ctx, models.TimetableJobOptimizing, 50, "late"))
	tracker.Progress(ctx, 90, "late")

	stored := store.get(job.ID)
	assert.Equal(t, models.TimetableJobFailed, stored.Status)
	assert.Equal(t, 100, stored.Progress)
	assert.Equal(t, "1 course sessions could not be placed", stored.Message)
	assert.Equal(t, []scheduler.Unplaced(unplaced), []scheduler.Unplaced(stored.Unplaced))
	assert.NotNil(t, stored.FinishedAt)
	assert.Equal(t, []models.TimetableJobStatus{models.TimetableJobFailed}, store.history)
}

func TestJobTrackerProgressStoreErrorKeepsState(t *testing.T) {
	store := newTimetableJobStoreStub()
	job := newTrackedJob(t, store)
	tracker := NewJobTracker(store, job, nil)
	ctx := context.Background()

	store.updateErr = errors.New("connection reset")
	tracker.Progress(ctx, 30, "generation")
	_, progress, _ := tracker.Snapshot()
	assert.Equal(t, 0, progress)

	err := tracker.Transition(ctx, models.TimetableJobGeneratingBase, 0, "generating")
	assert.EqualError(t, err, "connection reset")
	status, _, _ := tracker.Snapshot()
	assert.Equal(t, models.TimetableJobCreated, status)
}

func TestJobTrackerClampsProgress(t *testing.T) {
	store := newTimetableJobStoreStub()
	job := newTrackedJob(t, store)
	tracker := NewJobTracker(store, job, nil)

	tracker.Progress(context.Background(), 140, "overflow")
	_, progress, _ := tracker.Snapshot()
	assert.Equal(t, 100, progress)
}
