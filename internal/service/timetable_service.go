package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
	appErrors "github.com/noah-isme/timetable-engine/pkg/errors"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

// JobTypeTimetable tags queue jobs carrying timetable runs.
const JobTypeTimetable = "timetable"

type timetableJobStore interface {
	Create(ctx context.Context, job *models.TimetableJob) error
	GetByID(ctx context.Context, id string) (*models.TimetableJob, error)
	Update(ctx context.Context, id string, params repository.UpdateTimetableJobParams) error
	ListByStatus(ctx context.Context, statuses []models.TimetableJobStatus, limit int) ([]models.TimetableJob, error)
}

type timetableAssignmentStore interface {
	ReplaceForJob(ctx context.Context, jobID string, rows []models.TimetableAssignment) error
	ListByJob(ctx context.Context, jobID string) ([]models.TimetableAssignment, error)
}

type timetableSource interface {
	ListCourseOfferings(ctx context.Context, termID string) ([]models.CourseOffering, error)
	ListRooms(ctx context.Context) ([]models.RoomRecord, error)
	ListFacultyAvailability(ctx context.Context, termID string) ([]models.FacultyAvailabilitySlot, error)
	GetRules(ctx context.Context, termID string) (*models.TermScheduleRules, error)
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

type solveCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimetableServiceConfig carries the run policy.
type TimetableServiceConfig struct {
	// Seed is used when a request does not carry one. Zero means time based.
	Seed            int64
	RequireComplete bool
	CacheTTL        time.Duration
}

// TimetableService exposes synchronous solves and the asynchronous job lifecycle.
type TimetableService struct {
	jobs        timetableJobStore
	assignments timetableAssignmentStore
	source      timetableSource
	queue       jobDispatcher
	runner      *TimetableRunner
	cache       solveCache
	exporter    *ExportService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         TimetableServiceConfig
}

// NewTimetableService wires the timetable service. cache may be nil.
func NewTimetableService(
	jobStore timetableJobStore,
	assignments timetableAssignmentStore,
	source timetableSource,
	queue jobDispatcher,
	runner *TimetableRunner,
	cache solveCache,
	exporter *ExportService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if exporter == nil {
		exporter = NewExportService(logger, nil, nil)
	}
	return &TimetableService{
		jobs:        jobStore,
		assignments: assignments,
		source:      source,
		queue:       queue,
		runner:      runner,
		cache:       cache,
		exporter:    exporter,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Solve runs generation and optimization inline and reports whether the
// result came from the cache. Any unplaced session makes the result
// infeasible: assignments are then empty and the unplaced list carries the
// diagnostics.
func (s *TimetableService) Solve(ctx context.Context, req dto.SolveRequest) (*dto.SolveResponse, bool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	input := req.Problem()

	cacheKey := ""
	if req.Options.Seed != 0 && s.cache != nil {
		cacheKey = solveCacheKey(input, req.Options.Seed)
		var cached dto.SolveResponse
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	started := time.Now()
	result, err := s.runner.Run(ctx, input, RunOptions{
		Seed:             s.resolveSeed(req.Options.Seed),
		SkipOptimization: req.Options.SkipOptimization,
		RequireComplete:  true,
	}, nil)
	if err != nil {
		s.metrics.RecordRun(RunStatusFailed, 0, 0)
		return nil, false, mapRunError(err)
	}
	resp := buildSolveResponse(result, time.Since(started))
	if resp.Success {
		s.metrics.RecordRun(RunStatusCompleted, result.Fitness.Score, 0)
	} else {
		s.metrics.RecordRun(RunStatusInfeasible, 0, len(result.Unplaced))
	}

	if cacheKey != "" {
		if err := s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL); err != nil {
			s.logger.Sugar().Warnw("failed to cache solve result", "error", err)
		}
	}
	return resp, false, nil
}

func buildSolveResponse(result *RunResult, elapsed time.Duration) *dto.SolveResponse {
	total := len(result.Schedule) + len(result.Unplaced)
	if !result.Complete() {
		return &dto.SolveResponse{
			Success:     false,
			Status:      dto.SolveStatusInfeasible,
			Message:     fmt.Sprintf("%d of %d course sessions could not be placed", len(result.Unplaced), total),
			Assignments: []dto.AssignmentResponse{},
			Unplaced:    result.Unplaced,
			SolveTimeMs: elapsed.Milliseconds(),
		}
	}
	score := result.Fitness.Score
	breakdown := result.Fitness
	message := fmt.Sprintf("placed %d course sessions", total)
	if result.Optimized {
		message = fmt.Sprintf("placed %d course sessions, optimized over %d generations", total, result.Generations)
	}
	return &dto.SolveResponse{
		Success:     true,
		Status:      dto.SolveStatusFeasible,
		Message:     message,
		Assignments: dto.NewAssignmentResponses(result.Schedule),
		SolveTimeMs: elapsed.Milliseconds(),
		Fitness:     &score,
		Breakdown:   &breakdown,
		Generations: result.Generations,
		Seed:        result.Seed,
	}
}

// CreateJob validates the payload, persists a job and enqueues it.
func (s *TimetableService) CreateJob(ctx context.Context, req dto.SolveRequest, actorID string) (*dto.TimetableJobResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	return s.submit(ctx, nil, req.Problem(), req.Options.Seed, actorID)
}

// CreateTermJob loads a term's offerings, rooms, availability and rules from
// storage and enqueues a job for them.
func (s *TimetableService) CreateTermJob(ctx context.Context, termID string, req dto.TermJobRequest, actorID string) (*dto.TimetableJobResponse, error) {
	if termID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "termId is required")
	}
	input, err := s.loadTermProblem(ctx, termID)
	if err != nil {
		return nil, err
	}
	input.SkipOptimization = req.Options.SkipOptimization
	return s.submit(ctx, &termID, input, req.Options.Seed, actorID)
}

func (s *TimetableService) loadTermProblem(ctx context.Context, termID string) (models.TimetableProblem, error) {
	var input models.TimetableProblem
	offerings, err := s.source.ListCourseOfferings(ctx, termID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course offerings")
	}
	if len(offerings) == 0 {
		return input, appErrors.Clone(appErrors.ErrNotFound, "term has no course offerings")
	}
	rooms, err := s.source.ListRooms(ctx)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	slots, err := s.source.ListFacultyAvailability(ctx, termID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty availability")
	}
	rules, err := s.source.GetRules(ctx, termID)
	if err != nil {
		return input, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term rules")
	}

	input.Courses = make([]scheduler.CourseSession, len(offerings))
	for i, o := range offerings {
		input.Courses[i] = o.Session()
	}
	input.Rooms = make([]scheduler.Room, len(rooms))
	for i, r := range rooms {
		input.Rooms[i] = r.Room()
	}
	for _, slot := range slots {
		input.Availability = append(input.Availability, slot.Window())
	}
	if rules != nil {
		input.Rules = rules.Rules()
	}
	return input, nil
}

func (s *TimetableService) submit(ctx context.Context, termID *string, input models.TimetableProblem, seed int64, actorID string) (*dto.TimetableJobResponse, error) {
	if _, err := input.Build(); err != nil {
		return nil, mapRunError(err)
	}
	job := &models.TimetableJob{
		TermID:    termID,
		Status:    models.TimetableJobCreated,
		Progress:  0,
		Message:   "queued",
		Problem:   input,
		Seed:      s.resolveSeed(seed),
		CreatedBy: actorID,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeTimetable}); err != nil {
		status := models.TimetableJobFailed
		msg := "failed to enqueue job"
		now := time.Now().UTC()
		progress := 100
		if updateErr := s.jobs.Update(ctx, job.ID, repository.UpdateTimetableJobParams{
			Status:     &status,
			Progress:   &progress,
			Message:    &msg,
			FinishedAt: &now,
		}); updateErr != nil {
			s.logger.Sugar().Warnw("failed to mark job failed", "job_id", job.ID, "error", updateErr)
		}
		if errors.Is(err, jobs.ErrQueueFull) {
			return nil, appErrors.Wrap(err, appErrors.ErrQueueFull.Code, appErrors.ErrQueueFull.Status, appErrors.ErrQueueFull.Message)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue timetable job")
	}
	s.logger.Sugar().Infow("timetable job queued",
		"job_id", job.ID,
		"courses", len(input.Courses),
		"rooms", len(input.Rooms),
		"seed", job.Seed,
	)
	resp := dto.NewTimetableJobResponse(job)
	return &resp, nil
}

// GetJob returns the job record.
func (s *TimetableService) GetJob(ctx context.Context, id string) (*dto.TimetableJobResponse, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewTimetableJobResponse(job)
	return &resp, nil
}

// Assignments returns the persisted schedule of a completed job.
func (s *TimetableService) Assignments(ctx context.Context, id string) ([]dto.AssignmentResponse, error) {
	_, rows, err := s.completedAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewAssignmentResponses(models.ToSchedule(rows)), nil
}

// Export renders the schedule of a completed job.
func (s *TimetableService) Export(ctx context.Context, id string, query dto.ExportQuery) (*ExportFile, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	job, rows, err := s.completedAssignments(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.exporter.Render(job, rows, query.Format)
	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return file, nil
}

func (s *TimetableService) completedAssignments(ctx context.Context, id string) (*models.TimetableJob, []models.TimetableAssignment, error) {
	job, err := s.loadJob(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case job.Status == models.TimetableJobFailed && len(job.Unplaced) > 0:
		return nil, nil, appErrors.Clone(appErrors.ErrInfeasible, job.Message)
	case job.Status != models.TimetableJobCompleted:
		return nil, nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "timetable job is not completed")
	}
	rows, err := s.assignments.ListByJob(ctx, id)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load assignments")
	}
	return job, rows, nil
}

func (s *TimetableService) loadJob(ctx context.Context, id string) (*models.TimetableJob, error) {
	job, err := s.jobs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTimetableJobNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable job not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable job")
	}
	return job, nil
}

// RecoverInterruptedJobs requeues jobs that never started and fails jobs that
// were mid-run when the process stopped, since runs cannot resume.
func (s *TimetableService) RecoverInterruptedJobs(ctx context.Context) {
	queued, err := s.jobs.ListByStatus(ctx, []models.TimetableJobStatus{models.TimetableJobCreated}, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to recover queued timetable jobs", "error", err)
	}
	for _, job := range queued {
		if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: JobTypeTimetable}); err != nil {
			s.logger.Sugar().Warnw("failed to requeue timetable job", "job_id", job.ID, "error", err)
		}
	}

	running, err := s.jobs.ListByStatus(ctx, []models.TimetableJobStatus{
		models.TimetableJobGeneratingBase,
		models.TimetableJobBaseComplete,
		models.TimetableJobOptimizing,
	}, 50)
	if err != nil {
		s.logger.Sugar().Warnw("failed to list interrupted timetable jobs", "error", err)
		return
	}
	for i := range running {
		tracker := NewJobTracker(s.jobs, &running[i], s.logger)
		if err := tracker.Fail(ctx, "interrupted by restart; resubmit the job", JobOutcome{}); err != nil {
			s.logger.Sugar().Warnw("failed to fail interrupted job", "job_id", running[i].ID, "error", err)
		}
	}
}

func (s *TimetableService) resolveSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	if s.cfg.Seed != 0 {
		return s.cfg.Seed
	}
	return time.Now().UnixNano()
}

func mapRunError(err error) error {
	if errors.Is(err, scheduler.ErrMalformedInput) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "timetable run failed")
}

func solveCacheKey(input models.TimetableProblem, seed int64) string {
	payload, _ := json.Marshal(struct {
		Problem models.TimetableProblem `json:"problem"`
		Seed    int64                   `json:"seed"`
	}{input, seed})
	sum := sha256.Sum256(payload)
	return "solve:" + hex.EncodeToString(sum[:])
}
