package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/timetable-engine/internal/models"
)

func TestTimetableAssignmentRepositoryReplaceForJob(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_assignments WHERE job_id = $1")).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_assignments")).
		WithArgs(sqlmock.AnyArg(), "job-1", 0, "c1", "S1", "MATH", "F1", "R1", "lecture", 0, 1, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_assignments")).
		WithArgs(sqlmock.AnyArg(), "job-1", 1, "c2", "S1", "CHEM", "F2", "LAB1", "lab", 1, 1, 4, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rows := []models.TimetableAssignment{
		{Position: 0, SessionID: "c1", SectionID: "S1", SubjectID: "MATH", FacultyID: "F1", RoomID: "R1", Kind: "lecture", DayOfWeek: 0, StartPeriod: 1, EndPeriod: 1},
		{Position: 1, SessionID: "c2", SectionID: "S1", SubjectID: "CHEM", FacultyID: "F2", RoomID: "LAB1", Kind: "lab", DayOfWeek: 1, StartPeriod: 1, EndPeriod: 4},
	}
	require.NoError(t, repo.ReplaceForJob(context.Background(), "job-1", rows))
	assert.NotEmpty(t, rows[0].ID)
	assert.Equal(t, "job-1", rows[1].JobID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableAssignmentRepositoryReplaceRollsBack(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableAssignmentRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM timetable_assignments")).
		WithArgs("job-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_assignments")).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.ReplaceForJob(context.Background(), "job-1", []models.TimetableAssignment{{SessionID: "c1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableAssignmentRepositoryListByJob(t *testing.T) {
	db, mock, cleanup := newTimetableRepoMock(t)
	defer cleanup()
	repo := NewTimetableAssignmentRepository(db)

	rows := sqlmock.NewRows([]string{"id", "job_id", "position", "session_id", "section_id", "subject_id", "faculty_id", "room_id", "kind", "day_of_week", "start_period", "end_period", "created_at"}).
		AddRow("a1", "job-1", 0, "c1", "S1", "MATH", "F1", "R1", "lecture", 0, 1, 1, time.Now()).
		AddRow("a2", "job-1", 1, "c2", "S1", "CHEM", "F2", "LAB1", "lab", 1, 1, 4, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("FROM timetable_assignments WHERE job_id = $1 ORDER BY position ASC")).
		WithArgs("job-1").
		WillReturnRows(rows)

	result, err := repo.ListByJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Len(t, result, 2)

	schedule := models.ToSchedule(result)
	assert.Equal(t, "LAB1", schedule[1].RoomID)
	assert.Equal(t, 4, schedule[1].EndPeriod)
	assert.NoError(t, mock.ExpectationsWereMet())
}
