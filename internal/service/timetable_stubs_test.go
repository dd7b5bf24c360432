package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/timetable-engine/internal/dto"
	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/repository"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
	"github.com/noah-isme/timetable-engine/pkg/jobs"
)

type timetableJobStoreStub struct {
	mu        sync.Mutex
	jobs      map[string]*models.TimetableJob
	history   []models.TimetableJobStatus
	progress  []int
	updateErr error
}

func newTimetableJobStoreStub() *timetableJobStoreStub {
	return &timetableJobStoreStub{jobs: map[string]*models.TimetableJob{}}
}

func (s *timetableJobStoreStub) Create(ctx context.Context, job *models.TimetableJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now().UTC()
	job.UpdatedAt = job.CreatedAt
	copied := *job
	s.jobs[job.ID] = &copied
	return nil
}

func (s *timetableJobStoreStub) GetByID(ctx context.Context, id string) (*models.TimetableJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, repository.ErrTimetableJobNotFound
	}
	copied := *job
	return &copied, nil
}

func (s *timetableJobStoreStub) Update(ctx context.Context, id string, params repository.UpdateTimetableJobParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	job, ok := s.jobs[id]
	if !ok {
		return repository.ErrTimetableJobNotFound
	}
	if params.Status != nil {
		job.Status = *params.Status
		s.history = append(s.history, *params.Status)
	}
	if params.Progress != nil {
		job.Progress = *params.Progress
		s.progress = append(s.progress, *params.Progress)
	}
	if params.Message != nil {
		job.Message = *params.Message
	}
	if params.GenerationMs != nil {
		job.GenerationMs = params.GenerationMs
	}
	if params.OptimizationMs != nil {
		job.OptimizationMs = params.OptimizationMs
	}
	if params.QualityScore != nil {
		job.QualityScore = params.QualityScore
	}
	if params.Unplaced != nil {
		job.Unplaced = *params.Unplaced
	}
	if params.FinishedAt != nil {
		job.FinishedAt = params.FinishedAt
	}
	job.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *timetableJobStoreStub) ListByStatus(ctx context.Context, statuses []models.TimetableJobStatus, limit int) ([]models.TimetableJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TimetableJob
	for _, job := range s.jobs {
		for _, status := range statuses {
			if job.Status == status {
				out = append(out, *job)
			}
		}
	}
	return out, nil
}

func (s *timetableJobStoreStub) get(id string) *models.TimetableJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

type assignmentStoreStub struct {
	rows         map[string][]models.TimetableAssignment
	replaceErr   error
	replacePanic bool
}

func newAssignmentStoreStub() *assignmentStoreStub {
	return &assignmentStoreStub{rows: map[string][]models.TimetableAssignment{}}
}

func (s *assignmentStoreStub) ReplaceForJob(ctx context.Context, jobID string, rows []models.TimetableAssignment) error {
	if s.replacePanic {
		panic("assignment store unavailable")
	}
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.rows[jobID] = rows
	return nil
}

func (s *assignmentStoreStub) ListByJob(ctx context.Context, jobID string) ([]models.TimetableAssignment, error) {
	return s.rows[jobID], nil
}

type timetableSourceStub struct {
	offerings []models.CourseOffering
	rooms     []models.RoomRecord
	slots     []models.FacultyAvailabilitySlot
	rules     *models.TermScheduleRules
}

func (s *timetableSourceStub) ListCourseOfferings(ctx context.Context, termID string) ([]models.CourseOffering, error) {
	return s.offerings, nil
}

func (s *timetableSourceStub) ListRooms(ctx context.Context) ([]models.RoomRecord, error) {
	return s.rooms, nil
}

func (s *timetableSourceStub) ListFacultyAvailability(ctx context.Context, termID string) ([]models.FacultyAvailabilitySlot, error) {
	return s.slots, nil
}

func (s *timetableSourceStub) GetRules(ctx context.Context, termID string) (*models.TermScheduleRules, error) {
	return s.rules, nil
}

type dispatcherStub struct {
	jobs []jobs.Job
	err  error
}

func (d *dispatcherStub) Enqueue(job jobs.Job) error {
	if d.err != nil {
		return d.err
	}
	d.jobs = append(d.jobs, job)
	return nil
}

type solveCacheStub struct {
	entries map[string]dto.SolveResponse
	gets    int
}

func newSolveCacheStub() *solveCacheStub {
	return &solveCacheStub{entries: map[string]dto.SolveResponse{}}
}

func (c *solveCacheStub) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.gets++
	entry, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	out, ok := dest.(*dto.SolveResponse)
	if !ok {
		return false, errors.New("unexpected destination")
	}
	*out = entry
	return true, nil
}

func (c *solveCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	resp, ok := value.(*dto.SolveResponse)
	if !ok {
		return errors.New("unexpected value")
	}
	c.entries[key] = *resp
	return nil
}

func testOptimizerConfig() scheduler.Config {
	return scheduler.Config{PopulationSize: 6, Generations: 5}
}

// twoLectureRequest has two single-period lectures for different sections
// taught by one faculty member, with two lecture rooms.
func twoLectureRequest() dto.SolveRequest {
	return dto.SolveRequest{
		Courses: []dto.CourseRequest{
			{ID: "c1", SectionID: "S1", SectionName: "X-A", SubjectID: "MATH", SubjectCode: "MA1", FacultyID: "F1", FacultyCode: "T01", StudentCount: 30, YearLevel: 1},
			{ID: "c2", SectionID: "S2", SectionName: "X-B", SubjectID: "MATH", SubjectCode: "MA1", FacultyID: "F1", FacultyCode: "T01", StudentCount: 32, YearLevel: 1},
		},
		Rooms: []dto.RoomRequest{
			{ID: "R1", Name: "Room 1", Capacity: 40},
			{ID: "R2", Name: "Room 2", Capacity: 40},
		},
	}
}

// labOnlyRequest has a lab session and no lab rooms.
func labOnlyRequest() dto.SolveRequest {
	return dto.SolveRequest{
		Courses: []dto.CourseRequest{
			{ID: "lab1", SectionID: "S1", SubjectID: "CHEM", Kind: "lab", FacultyID: "F2", StudentCount: 30, YearLevel: 1},
		},
		Rooms: []dto.RoomRequest{{ID: "R1", Capacity: 40, Kind: "lecture"}},
	}
}

type timetableFixture struct {
	jobs        *timetableJobStoreStub
	assignments *assignmentStoreStub
	source      *timetableSourceStub
	queue       *dispatcherStub
	cache       *solveCacheStub
	runner      *TimetableRunner
	service     *TimetableService
	worker      *TimetableWorker
}

func newTimetableFixture(requireComplete bool) *timetableFixture {
	f := &timetableFixture{
		jobs:        newTimetableJobStoreStub(),
		assignments: newAssignmentStoreStub(),
		source:      &timetableSourceStub{},
		queue:       &dispatcherStub{},
		cache:       newSolveCacheStub(),
	}
	f.runner = NewTimetableRunner(testOptimizerConfig(), nil, nil)
	f.service = NewTimetableService(f.jobs, f.assignments, f.source, f.queue, f.runner, f.cache, nil, nil, nil, nil,
		TimetableServiceConfig{RequireComplete: requireComplete, Seed: 11})
	f.worker = NewTimetableWorker(f.jobs, f.assignments, f.runner, nil, requireComplete, nil)
	return f
}
