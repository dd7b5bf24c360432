package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// TimetableAssignmentRepository stores the placements of finished jobs.
type TimetableAssignmentRepository struct {
	db *sqlx.DB
}

// NewTimetableAssignmentRepository builds repository.
func NewTimetableAssignmentRepository(db *sqlx.DB) *TimetableAssignmentRepository {
	return &TimetableAssignmentRepository{db: db}
}

// ReplaceForJob swaps the stored assignments of a job inside one transaction
// so readers never observe a half-written schedule.
func (r *TimetableAssignmentRepository) ReplaceForJob(ctx context.Context, jobID string, rows []models.TimetableAssignment) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin assignment tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM timetable_assignments WHERE job_id = $1`, jobID); err != nil {
		return fmt.Errorf("clear timetable assignments: %w", err)
	}

	const query = `
INSERT INTO timetable_assignments (id, job_id, position, session_id, section_id, subject_id, faculty_id, room_id, kind, day_of_week, start_period, end_period, created_at)
VALUES (:id, :job_id, :position, :session_id, :section_id, :subject_id, :faculty_id, :room_id, :kind, :day_of_week, :start_period, :end_period, :created_at)`

	now := time.Now().UTC()
	for i := range rows {
		row := &rows[i]
		if row.ID == "" {
			row.ID = uuid.NewString()
		}
		row.JobID = jobID
		if row.CreatedAt.IsZero() {
			row.CreatedAt = now
		}
		if _, err = sqlx.NamedExecContext(ctx, tx, query, row); err != nil {
			return fmt.Errorf("insert timetable assignment: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit assignment tx: %w", err)
	}
	return nil
}

// ListByJob returns a job's assignments in schedule order.
func (r *TimetableAssignmentRepository) ListByJob(ctx context.Context, jobID string) ([]models.TimetableAssignment, error) {
	const query = `SELECT id, job_id, position, session_id, section_id, subject_id, faculty_id, room_id, kind, day_of_week, start_period, end_period, created_at
FROM timetable_assignments WHERE job_id = $1 ORDER BY position ASC`
	var rows []models.TimetableAssignment
	if err := r.db.SelectContext(ctx, &rows, query, jobID); err != nil {
		return nil, fmt.Errorf("list timetable assignments: %w", err)
	}
	return rows, nil
}
