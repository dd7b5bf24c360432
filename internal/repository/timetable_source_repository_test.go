package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

func TestTimetableSourceRepositoryLoadsTermData(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSourceRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("FROM term_course_offerings WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "term_id", "section_id", "section_name", "subject_id", "subject_code", "kind", "periods", "faculty_id", "faculty_code", "student_count", "year_level"}).
			AddRow("c1", "term-1", "S1", "X-A", "CHEM", "CH1", "lab", 4, "F1", "T01", 32, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, kind FROM rooms WHERE active = TRUE")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "kind"}).
			AddRow("LAB1", "Chemistry lab", 36, "lab"))
	mock.ExpectQuery(regexp.QuoteMeta("FROM faculty_availability WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"faculty_id", "day_of_week", "start_period", "end_period"}).
			AddRow("F1", 2, 1, 8))

	courses, err := repo.ListCourseOfferings(ctx, "term-1")
	require.NoError(t, err)
	require.Len(t, courses, 1)
	session := courses[0].Session()
	assert.Equal(t, scheduler.KindLab, session.Kind)
	assert.Equal(t, "X-A", session.SectionName)

	rooms, err := repo.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, scheduler.Room{ID: "LAB1", Name: "Chemistry lab", Capacity: 36, Kind: scheduler.KindLab}, rooms[0].Room())

	slots, err := repo.ListFacultyAvailability(ctx, "term-1")
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, scheduler.AvailabilityWindow{FacultyID: "F1", Day: 2, StartPeriod: 1, EndPeriod: 8}, slots[0].Window())

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableSourceRepositoryGetRules(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableSourceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM term_schedule_rules WHERE term_id = $1")).
		WithArgs("term-1").
		WillReturnRows(sqlmock.NewRows([]string{"term_id", "days_per_week", "periods_per_day", "lab_periods", "min_capacity_percent", "max_periods_per_section_per_day"}).
			AddRow("term-1", 5, 8, 4, 85, 6))
	mock.ExpectQuery(regexp.QuoteMeta("FROM term_schedule_rules WHERE term_id = $1")).
		WithArgs("term-2").
		WillReturnError(sql.ErrNoRows)

	rules, err := repo.GetRules(context.Background(), "term-1")
	require.NoError(t, err)
	require.NotNil(t, rules)
	assert.Equal(t, scheduler.Rules{DaysPerWeek: 5, PeriodsPerDay: 8, LabPeriods: 4, MinCapacityPercent: 85, MaxPeriodsPerSectionPerDay: 6}, rules.Rules())

	missing, err := repo.GetRules(context.Background(), "term-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.NoError(t, mock.ExpectationsWereMet())
}
