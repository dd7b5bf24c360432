package models

import "github.com/noah-isme/timetable-engine/internal/scheduler"

// CourseOffering is one course session row planned for a term.
type CourseOffering struct {
	ID           string `db:"id"`
	TermID       string `db:"term_id"`
	SectionID    string `db:"section_id"`
	SectionName  string `db:"section_name"`
	SubjectID    string `db:"subject_id"`
	SubjectCode  string `db:"subject_code"`
	Kind         string `db:"kind"`
	Periods      int    `db:"periods"`
	FacultyID    string `db:"faculty_id"`
	FacultyCode  string `db:"faculty_code"`
	StudentCount int    `db:"student_count"`
	YearLevel    int    `db:"year_level"`
}

// Session converts the row into an engine course session.
func (c CourseOffering) Session() scheduler.CourseSession {
	return scheduler.CourseSession{
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

// RoomRecord is a bookable room row.
type RoomRecord struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Capacity int    `db:"capacity"`
	Kind     string `db:"kind"`
}

// Room converts the row into an engine room.
func (r RoomRecord) Room() scheduler.Room {
	return scheduler.Room{ID: r.ID, Name: r.Name, Capacity: r.Capacity, Kind: scheduler.SessionKind(r.Kind)}
}

// FacultyAvailabilitySlot is one availability window row.
type FacultyAvailabilitySlot struct {
	FacultyID   string `db:"faculty_id"`
	DayOfWeek   int    `db:"day_of_week"`
	StartPeriod int    `db:"start_period"`
	EndPeriod   int    `db:"end_period"`
}

// Window converts the row into an engine availability window.
func (s FacultyAvailabilitySlot) Window() scheduler.AvailabilityWindow {
	return scheduler.AvailabilityWindow{FacultyID: s.FacultyID, Day: s.DayOfWeek, StartPeriod: s.StartPeriod, EndPeriod: s.EndPeriod}
}

// TermScheduleRules stores per-term grid settings.
type TermScheduleRules struct {
	TermID             string `db:"term_id"`
	DaysPerWeek        int    `db:"days_per_week"`
	PeriodsPerDay      int    `db:"periods_per_day"`
	LabPeriods         int    `db:"lab_periods"`
	MinCapacityPercent int    `db:"min_capacity_percent"`
	MaxSectionPeriods  int    `db:"max_periods_per_section_per_day"`
}

// Rules converts the row into engine rules.
func (r TermScheduleRules) Rules() scheduler.Rules {
	return scheduler.Rules{
		DaysPerWeek:        r.DaysPerWeek,
		PeriodsPerDay:      r.PeriodsPerDay,
		LabPeriods:         r.LabPeriods,
		MinCapacityPercent: r.MinCapacityPercent,

		MaxPeriodsPerSectionPerDay: r.MaxSectionPeriods,
	}
}
