package dto

import (
	"time"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

// CourseRequest describes one course session to place.
type CourseRequest struct {
	ID           string `json:"id"`
	SectionID    string `json:"sectionId" validate:"required"`
	SectionName  string `json:"sectionName"`
	SubjectID    string `json:"subjectId" validate:"required"`
	SubjectCode  string `json:"subjectCode"`
	Kind         string `json:"kind" validate:"omitempty,oneof=lecture lab LECTURE LAB"`
	Periods      int    `json:"periods" validate:"omitempty,min=1"`
	FacultyID    string `json:"facultyId" validate:"required"`
	FacultyCode  string `json:"facultyCode"`
	StudentCount int    `json:"studentCount" validate:"required,min=1"`
	YearLevel    int    `json:"yearLevel" validate:"required,min=1"`
}

// RoomRequest describes a bookable room.
type RoomRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
	Kind     string `json:"kind" validate:"omitempty,oneof=lecture lab LECTURE LAB"`
}

// AvailabilitySlotRequest is one window on one day.
type AvailabilitySlotRequest struct {
	DayOfWeek   int `json:"dayOfWeek" validate:"min=0,max=6"`
	StartPeriod int `json:"startPeriod" validate:"required,min=1"`
	EndPeriod   int `json:"endPeriod" validate:"required,gtefield=StartPeriod"`
}

// FacultyAvailabilityRequest lists a faculty member's windows. An empty list
// means the faculty member is available for the whole week.
type FacultyAvailabilityRequest struct {
	FacultyID string                    `json:"facultyId" validate:"required"`
	Slots     []AvailabilitySlotRequest `json:"slots" validate:"dive"`
}

// RulesRequest overrides the grid settings. Zero values fall back to defaults.
type RulesRequest struct {
	DaysPerWeek        int `json:"daysPerWeek" validate:"omitempty,min=1,max=7"`
	PeriodsPerDay      int `json:"periodsPerDay" validate:"omitempty,min=2,max=16"`
	LabPeriods         int `json:"labPeriods" validate:"omitempty,min=1"`
	MinCapacityPercent int `json:"minCapacityPercent" validate:"omitempty,min=0,max=100"`
	// MaxPeriodsPerSectionPerDay caps a section's periods on one day; zero disables it.
	MaxPeriodsPerSectionPerDay int `json:"maxPeriodsPerSectionPerDay" validate:"omitempty,min=0"`
}

// ExistingAssignmentRequest is a slot already committed, usually a lab block
// from an earlier run. It blocks its room, faculty and section.
type ExistingAssignmentRequest struct {
	SectionID   string `json:"sectionId" validate:"required"`
	SubjectID   string `json:"subjectId"`
	FacultyID   string `json:"facultyId" validate:"required"`
	RoomID      string `json:"roomId" validate:"required"`
	Day         int    `json:"day" validate:"min=0,max=6"`
	StartPeriod int    `json:"startPeriod" validate:"required,min=1"`
	EndPeriod   int    `json:"endPeriod" validate:"required,gtefield=StartPeriod"`
}

// SolveOptions tunes a single run.
type SolveOptions struct {
	Seed             int64 `json:"seed"`
	SkipOptimization bool  `json:"skipOptimization"`
}

// SolveRequest is the canonical problem payload for solves and jobs.
type SolveRequest struct {
	Courses             []CourseRequest              `json:"courses" validate:"required,min=1,dive"`
	Rooms               []RoomRequest                `json:"rooms" validate:"required,min=1,dive"`
	FacultyAvailability []FacultyAvailabilityRequest `json:"facultyAvailability" validate:"omitempty,dive"`
	ExistingAssignments []ExistingAssignmentRequest  `json:"existingAssignments" validate:"omitempty,dive"`
	Rules               RulesRequest                 `json:"rules"`
	Options             SolveOptions                 `json:"options"`
}

// Problem converts the payload into engine input.
func (r SolveRequest) Problem() models.TimetableProblem {
	problem := models.TimetableProblem{
		Courses: make([]scheduler.CourseSession, len(r.Courses)),
		Rooms:   make([]scheduler.Room, len(r.Rooms)),
		Rules: scheduler.Rules{
			DaysPerWeek:        r.Rules.DaysPerWeek,
			PeriodsPerDay:      r.Rules.PeriodsPerDay,
			LabPeriods:         r.Rules.LabPeriods,
			MinCapacityPercent: r.Rules.MinCapacityPercent,

			MaxPeriodsPerSectionPerDay: r.Rules.MaxPeriodsPerSectionPerDay,
		},
		SkipOptimization: r.Options.SkipOptimization,
	}
	for _, e := range r.ExistingAssignments {
		problem.Fixed = append(problem.Fixed, scheduler.FixedAssignment{
			SectionID:   e.SectionID,
			SubjectID:   e.SubjectID,
			FacultyID:   e.FacultyID,
			RoomID:      e.RoomID,
			Day:         e.Day,
			StartPeriod: e.StartPeriod,
			EndPeriod:   e.EndPeriod,
		})
	}
	for i, c := range r.Courses {
		problem.Courses[i] = scheduler.CourseSession{
			ID:           c.ID,
			SectionID:    c.SectionID,
			SectionName:  c.SectionName,
			SubjectID:    c.SubjectID,
			SubjectCode:  c.SubjectCode,
			Kind:         scheduler.SessionKind(c.Kind),
			Periods:      c.Periods,
			FacultyID:    c.FacultyID,
			FacultyCode:  c.FacultyCode,
			StudentCount: c.StudentCount,
			YearLevel:    c.YearLevel,
		}
	}
	for i, room := range r.Rooms {
		problem.Rooms[i] = scheduler.Room{ID: room.ID, Name: room.Name, Capacity: room.Capacity, Kind: scheduler.SessionKind(room.Kind)}
	}
	for _, fa := range r.FacultyAvailability {
		for _, slot := range fa.Slots {
			problem.Availability = append(problem.Availability, scheduler.AvailabilityWindow{
				FacultyID:   fa.FacultyID,
				Day:         slot.DayOfWeek,
				StartPeriod: slot.StartPeriod,
				EndPeriod:   slot.EndPeriod,
			})
		}
	}
	return problem
}

// Solve status tags.
const (
	SolveStatusFeasible   = "feasible"
	SolveStatusInfeasible = "infeasible"
)

// AssignmentResponse is one placed session.
type AssignmentResponse struct {
	SessionID   string `json:"sessionId"`
	SectionID   string `json:"sectionId"`
	SubjectID   string `json:"subjectId"`
	FacultyID   string `json:"facultyId"`
	RoomID      string `json:"roomId"`
	Kind        string `json:"kind"`
	Day         int    `json:"day"`
	StartPeriod int    `json:"startPeriod"`
	EndPeriod   int    `json:"endPeriod"`
}

// NewAssignmentResponses maps an engine schedule to response items.
func NewAssignmentResponses(schedule scheduler.Schedule) []AssignmentResponse {
	out := make([]AssignmentResponse, len(schedule))
	for i, a := range schedule {
		out[i] = AssignmentResponse{
			SessionID:   a.SessionID,
			SectionID:   a.SectionID,
			SubjectID:   a.SubjectID,
			FacultyID:   a.FacultyID,
			RoomID:      a.RoomID,
			Kind:        string(a.Kind),
			Day:         a.Day,
			StartPeriod: a.StartPeriod,
			EndPeriod:   a.EndPeriod,
		}
	}
	return out
}

// SolveResponse is the synchronous solve result.
type SolveResponse struct {
	Success     bool                 `json:"success"`
	Status      string               `json:"status"`
	Message     string               `json:"message"`
	Assignments []AssignmentResponse `json:"assignments"`
	Unplaced    []scheduler.Unplaced `json:"unplaced,omitempty"`
	SolveTimeMs int64                `json:"solveTimeMs"`
	Fitness     *float64             `json:"fitness,omitempty"`
	Breakdown   *scheduler.Fitness   `json:"breakdown,omitempty"`
	Generations int                  `json:"generations,omitempty"`
	Seed        int64                `json:"seed,omitempty"`
}

// TimetableJobResponse exposes job progress metadata.
type TimetableJobResponse struct {
	ID             string                    `json:"id"`
	TermID         *string                   `json:"termId,omitempty"`
	Status         models.TimetableJobStatus `json:"status"`
	Progress       int                       `json:"progress"`
	Message        string                    `json:"message"`
	Seed           int64                     `json:"seed,omitempty"`
	GenerationMs   *int64                    `json:"generationMs,omitempty"`
	OptimizationMs *int64                    `json:"optimizationMs,omitempty"`
	QualityScore   *float64                  `json:"qualityScore,omitempty"`
	Unplaced       []scheduler.Unplaced      `json:"unplaced,omitempty"`
	CreatedAt      time.Time                 `json:"createdAt"`
	UpdatedAt      time.Time                 `json:"updatedAt"`
	FinishedAt     *time.Time                `json:"finishedAt,omitempty"`
}

// NewTimetableJobResponse maps a job record to its response.
func NewTimetableJobResponse(job *models.TimetableJob) TimetableJobResponse {
	return TimetableJobResponse{
		ID:             job.ID,
		TermID:         job.TermID,
		Status:         job.Status,
		Progress:       job.Progress,
		Message:        job.Message,
		Seed:           job.Seed,
		GenerationMs:   job.GenerationMs,
		OptimizationMs: job.OptimizationMs,
		QualityScore:   job.QualityScore,
		Unplaced:       job.Unplaced,
		CreatedAt:      job.CreatedAt,
		UpdatedAt:      job.UpdatedAt,
		FinishedAt:     job.FinishedAt,
	}
}

// TermJobRequest starts a job from stored term data.
type TermJobRequest struct {
	Options SolveOptions `json:"options"`
}

// ExportQuery selects the export format.
type ExportQuery struct {
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
