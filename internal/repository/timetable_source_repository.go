package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/timetable-engine/internal/models"
)

// TimetableSourceRepository reads the planning data a term job is built from.
type TimetableSourceRepository struct {
	db *sqlx.DB
}

// NewTimetableSourceRepository constructs the repository.
func NewTimetableSourceRepository(db *sqlx.DB) *TimetableSourceRepository {
	return &TimetableSourceRepository{db: db}
}

// ListCourseOfferings returns a term's course sessions in planning order.
func (r *TimetableSourceRepository) ListCourseOfferings(ctx context.Context, termID string) ([]models.CourseOffering, error) {
	const query = `SELECT id, term_id, section_id, section_name, subject_id, subject_code, kind, periods, faculty_id, faculty_code, student_count, year_level
FROM term_course_offerings WHERE term_id = $1 ORDER BY section_id ASC, subject_id ASC, id ASC`
	var rows []models.CourseOffering
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list course offerings: %w", err)
	}
	return rows, nil
}

// ListRooms returns active rooms.
func (r *TimetableSourceRepository) ListRooms(ctx context.Context) ([]models.RoomRecord, error) {
	const query = `SELECT id, name, capacity, kind FROM rooms WHERE active = TRUE ORDER BY capacity ASC, id ASC`
	var rows []models.RoomRecord
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rows, nil
}

// ListFacultyAvailability returns the availability windows registered for a term.
func (r *TimetableSourceRepository) ListFacultyAvailability(ctx context.Context, termID string) ([]models.FacultyAvailabilitySlot, error) {
	const query = `SELECT faculty_id, day_of_week, start_period, end_period
FROM faculty_availability WHERE term_id = $1 ORDER BY faculty_id ASC, day_of_week ASC, start_period ASC`
	var rows []models.FacultyAvailabilitySlot
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list faculty availability: %w", err)
	}
	return rows, nil
}

// GetRules returns the grid settings of a term. A term without a row yields nil.
func (r *TimetableSourceRepository) GetRules(ctx context.Context, termID string) (*models.TermScheduleRules, error) {
	const query = `SELECT term_id, days_per_week, periods_per_day, lab_periods, min_capacity_percent,
	max_periods_per_section_per_day
FROM term_schedule_rules WHERE term_id = $1`
	var rules models.TermScheduleRules
	if err := r.db.GetContext(ctx, &rules, query, termID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get term schedule rules: %w", err)
	}
	return &rules, nil
}
