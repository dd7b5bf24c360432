package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

// TimetableJobStatus captures the run lifecycle.
type TimetableJobStatus string

const (
	TimetableJobCreated        TimetableJobStatus = "created"
	TimetableJobGeneratingBase TimetableJobStatus = "generating_base"
	TimetableJobBaseComplete   TimetableJobStatus = "base_complete"
	TimetableJobOptimizing     TimetableJobStatus = "optimizing"
	TimetableJobCompleted      TimetableJobStatus = "completed"
	TimetableJobFailed         TimetableJobStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s TimetableJobStatus) Terminal() bool {
	return s == TimetableJobCompleted || s == TimetableJobFailed
}

// TimetableJob is the persisted record of one scheduling run.
type TimetableJob struct {
	ID             string             `db:"id" json:"id"`
	TermID         *string            `db:"term_id" json:"termId,omitempty"`
	Status         TimetableJobStatus `db:"status" json:"status"`
	Progress       int                `db:"progress" json:"progress"`
	Message        string             `db:"message" json:"message"`
	Problem        TimetableProblem   `db:"problem" json:"-"`
	Seed           int64              `db:"seed" json:"seed"`
	GenerationMs   *int64             `db:"generation_ms" json:"generationMs,omitempty"`
	OptimizationMs *int64             `db:"optimization_ms" json:"optimizationMs,omitempty"`
	QualityScore   *float64           `db:"quality_score" json:"qualityScore,omitempty"`
	Unplaced       UnplacedSessions   `db:"unplaced" json:"unplaced,omitempty"`
	CreatedBy      string             `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`
	FinishedAt     *time.Time         `db:"finished_at" json:"finishedAt,omitempty"`
}

// TimetableProblem is the engine input stored with a job as JSONB.
type TimetableProblem struct {
	Courses      []scheduler.CourseSession      `json:"courses"`
	Rooms        []scheduler.Room               `json:"rooms"`
	Availability []scheduler.AvailabilityWindow `json:"availability"`
	Rules        scheduler.Rules                `json:"rules"`
	// Fixed slots block their room, faculty and section and are not returned.
	Fixed []scheduler.FixedAssignment `json:"existingAssignments,omitempty"`
	// SkipOptimization stops the run after the base schedule.
	SkipOptimization bool `json:"skipOptimization,omitempty"`
}

// Build validates the stored input and returns the engine problem.
func (p TimetableProblem) Build() (*scheduler.Problem, error) {
	return scheduler.NewProblem(p.Courses, p.Rooms, p.Availability, p.Rules, p.Fixed...)
}

// Value marshals the problem for persistence.
func (p TimetableProblem) Value() (driver.Value, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal timetable problem: %w", err)
	}
	return data, nil
}

// Scan unmarshals the stored JSON document.
func (p *TimetableProblem) Scan(value interface{}) error {
	data, err := jsonBytes(value, "TimetableProblem")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*p = TimetableProblem{}
		return nil
	}
	if err := json.Unmarshal(data, p); err != nil {
		return fmt.Errorf("unmarshal timetable problem: %w", err)
	}
	return nil
}

// UnplacedSessions stores generator diagnostics as JSONB.
type UnplacedSessions []scheduler.Unplaced

// Value marshals the list, storing an empty array rather than NULL.
func (u UnplacedSessions) Value() (driver.Value, error) {
	if u == nil {
		u = UnplacedSessions{}
	}
	data, err := json.Marshal(u)
	if err != nil {
		return nil, fmt.Errorf("marshal unplaced sessions: %w", err)
	}
	return data, nil
}

// Scan unmarshals the stored list.
func (u *UnplacedSessions) Scan(value interface{}) error {
	data, err := jsonBytes(value, "UnplacedSessions")
	if err != nil {
		return err
	}
	if len(data) == 0 {
		*u = nil
		return nil
	}
	if err := json.Unmarshal(data, u); err != nil {
		return fmt.Errorf("unmarshal unplaced sessions: %w", err)
	}
	return nil
}

func jsonBytes(value interface{}, target string) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("unsupported type %T for %s", value, target)
	}
}

// TimetableAssignment is one persisted placement of a finished job.
type TimetableAssignment struct {
	ID          string    `db:"id" json:"id"`
	JobID       string    `db:"job_id" json:"jobId"`
	Position    int       `db:"position" json:"position"`
	SessionID   string    `db:"session_id" json:"sessionId"`
	SectionID   string    `db:"section_id" json:"sectionId"`
	SubjectID   string    `db:"subject_id" json:"subjectId"`
	FacultyID   string    `db:"faculty_id" json:"facultyId"`
	RoomID      string    `db:"room_id" json:"roomId"`
	Kind        string    `db:"kind" json:"kind"`
	DayOfWeek   int       `db:"day_of_week" json:"dayOfWeek"`
	StartPeriod int       `db:"start_period" json:"startPeriod"`
	EndPeriod   int       `db:"end_period" json:"endPeriod"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// AssignmentsFromSchedule converts an engine schedule into rows for jobID.
func AssignmentsFromSchedule(jobID string, schedule scheduler.Schedule) []TimetableAssignment {
	rows := make([]TimetableAssignment, len(schedule))
	for i, a := range schedule {
		rows[i] = TimetableAssignment{
			JobID:       jobID,
			Position:    i,
			SessionID:   a.SessionID,
			SectionID:   a.SectionID,
			SubjectID:   a.SubjectID,
			FacultyID:   a.FacultyID,
			RoomID:      a.RoomID,
			Kind:        string(a.Kind),
			DayOfWeek:   a.Day,
			StartPeriod: a.StartPeriod,
			EndPeriod:   a.EndPeriod,
		}
	}
	return rows
}

// ToSchedule converts stored rows back into engine assignments.
func ToSchedule(rows []TimetableAssignment) scheduler.Schedule {
	out := make(scheduler.Schedule, len(rows))
	for i, row := range rows {
		out[i] = scheduler.Assignment{
			SessionID:   row.SessionID,
			SectionID:   row.SectionID,
			SubjectID:   row.SubjectID,
			FacultyID:   row.FacultyID,
			RoomID:      row.RoomID,
			Kind:        scheduler.SessionKind(row.Kind),
			Day:         row.DayOfWeek,
			StartPeriod: row.StartPeriod,
			EndPeriod:   row.EndPeriod,
		}
	}
	return out
}
