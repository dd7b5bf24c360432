package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// ErrTimetableJobNotFound is returned when no job row matches.
var ErrTimetableJobNotFound = errors.New("timetable job not found")

const timetableJobColumns = `id, term_id, status, progress, message, problem, seed, generation_ms, optimization_ms, quality_score, unplaced, created_by, created_at, updated_at, finished_at`

// TimetableJobRepository persists scheduling run records.
type TimetableJobRepository struct {
	db *sqlx.DB
}

// NewTimetableJobRepository constructs the repository.
func NewTimetableJobRepository(db *sqlx.DB) *TimetableJobRepository {
	return &TimetableJobRepository{db: db}
}

// Create inserts a new job row with generated defaults.
func (r *TimetableJobRepository) Create(ctx context.Context, job *models.TimetableJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.TimetableJobCreated
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = job.CreatedAt

	const query = `INSERT INTO timetable_jobs (` + timetableJobColumns + `)
VALUES (:id, :term_id, :status, :progress, :message, :problem, :seed, :generation_ms, :optimization_ms, :quality_score, :unplaced, :created_by, :created_at, :updated_at, :finished_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create timetable job: %w", err)
	}
	return nil
}

// GetByID returns a job row by its identifier.
func (r *TimetableJobRepository) GetByID(ctx context.Context, id string) (*models.TimetableJob, error) {
	const query = `SELECT ` + timetableJobColumns + ` FROM timetable_jobs WHERE id = $1`
	var job models.TimetableJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTimetableJobNotFound
		}
		return nil, fmt.Errorf("get timetable job: %w", err)
	}
	return &job, nil
}

// UpdateTimetableJobParams defines the mutable fields. Nil fields are left untouched.
type UpdateTimetableJobParams struct {
	Status         *models.TimetableJobStatus
	Progress       *int
	Message        *string
	GenerationMs   *int64
	OptimizationMs *int64
	QualityScore   *float64
	Unplaced       *models.UnplacedSessions
	FinishedAt     *time.Time
}

// Update persists the provided changes for a job row and bumps updated_at.
func (r *TimetableJobRepository) Update(ctx context.Context, id string, params UpdateTimetableJobParams) error {
	set := make([]string, 0, 10)
	args := make([]interface{}, 0, 11)
	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.Status != nil {
		add("status", *params.Status)
	}
	if params.Progress != nil {
		add("progress", *params.Progress)
	}
	if params.Message != nil {
		add("message", *params.Message)
	}
	if params.GenerationMs != nil {
		add("generation_ms", *params.GenerationMs)
	}
	if params.OptimizationMs != nil {
		add("optimization_ms", *params.OptimizationMs)
	}
	if params.QualityScore != nil {
		add("quality_score", *params.QualityScore)
	}
	if params.Unplaced != nil {
		add("unplaced", *params.Unplaced)
	}
	if params.FinishedAt != nil {
		add("finished_at", *params.FinishedAt)
	}

	if len(set) == 0 {
		return nil
	}
	add("updated_at", time.Now().UTC())

	query := fmt.Sprintf("UPDATE timetable_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), len(args)+1)
	args = append(args, id)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update timetable job: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return ErrTimetableJobNotFound
	}
	return nil
}

// ListByStatus fetches jobs in any of the given states, oldest first.
func (r *TimetableJobRepository) ListByStatus(ctx context.Context, statuses []models.TimetableJobStatus, limit int) ([]models.TimetableJob, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	const query = `SELECT ` + timetableJobColumns + ` FROM timetable_jobs WHERE status = ANY($1) ORDER BY created_at ASC LIMIT $2`
	var jobs []models.TimetableJob
	if err := r.db.SelectContext(ctx, &jobs, query, pq.Array(values), limit); err != nil {
		return nil, fmt.Errorf("list timetable jobs: %w", err)
	}
	return jobs, nil
}
