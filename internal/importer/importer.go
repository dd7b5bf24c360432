// Package importer reads timetable problems from CSV and YAML files and
// writes solved timetables back out as CSV.
package importer

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/noah-isme/timetable-engine/internal/models"
	"github.com/noah-isme/timetable-engine/internal/scheduler"
)

// CourseRow is one line of courses.csv.
type CourseRow struct {
	ID           string `csv:"id"`
	SectionID    string `csv:"section_id"`
	SectionName  string `csv:"section_name"`
	SubjectID    string `csv:"subject_id"`
	SubjectCode  string `csv:"subject_code"`
	Kind         string `csv:"kind"`
	Periods      int    `csv:"periods"`
	FacultyID    string `csv:"faculty_id"`
	FacultyCode  string `csv:"faculty_code"`
	StudentCount int    `csv:"student_count"`
	YearLevel    int    `csv:"year_level"`
}

// RoomRow is one line of rooms.csv.
type RoomRow struct {
	ID       string `csv:"id"`
	Name     string `csv:"name"`
	Capacity int    `csv:"capacity"`
	Kind     string `csv:"kind"`
}

// AvailabilityRow is one line of availability.csv. Days are 0 (Monday) to 6.
type AvailabilityRow struct {
	FacultyID   string `csv:"faculty_id"`
	DayOfWeek   int    `csv:"day_of_week"`
	StartPeriod int    `csv:"start_period"`
	EndPeriod   int    `csv:"end_period"`
}

// FixedRow is one line of fixed.csv: a slot committed before the run.
type FixedRow struct {
	SectionID   string `csv:"section_id"`
	SubjectID   string `csv:"subject_id"`
	FacultyID   string `csv:"faculty_id"`
	RoomID      string `csv:"room_id"`
	DayOfWeek   int    `csv:"day_of_week"`
	StartPeriod int    `csv:"start_period"`
	EndPeriod   int    `csv:"end_period"`
}

// AssignmentRow is one line of the solved timetable.
type AssignmentRow struct {
	SessionID   string `csv:"session_id"`
	Day         string `csv:"day"`
	DayOfWeek   int    `csv:"day_of_week"`
	StartPeriod int    `csv:"start_period"`
	EndPeriod   int    `csv:"end_period"`
	Section     string `csv:"section"`
	Subject     string `csv:"subject"`
	Faculty     string `csv:"faculty"`
	Room        string `csv:"room"`
	Kind        string `csv:"kind"`
}

// RulesFile is the YAML rules document. Zero values fall back to engine
// defaults.
type RulesFile struct {
	DaysPerWeek        int   `yaml:"days_per_week"`
	PeriodsPerDay      int   `yaml:"periods_per_day"`
	LabPeriods         int   `yaml:"lab_periods"`
	MinCapacityPercent int   `yaml:"min_capacity_percent"`
	MaxSectionPeriods  int   `yaml:"max_periods_per_section_per_day"`
	Seed               int64 `yaml:"seed"`
	SkipOptimization   bool  `yaml:"skip_optimization"`
}

// Paths locates the input files. Availability, Fixed and Rules are optional.
type Paths struct {
	Courses      string
	Rooms        string
	Availability string
	Fixed        string
	Rules        string
}

// ReadCourses parses course rows.
func ReadCourses(r io.Reader) ([]scheduler.CourseSession, error) {
	var rows []CourseRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse courses: %w", err)
	}
	courses := make([]scheduler.CourseSession, len(rows))
	for i, row := range rows {
		courses[i] = scheduler.CourseSession{
			ID:           strings.TrimSpace(row.ID),
			SectionID:    strings.TrimSpace(row.SectionID),
			SectionName:  strings.TrimSpace(row.SectionName),
			SubjectID:    strings.TrimSpace(row.SubjectID),
			SubjectCode:  strings.TrimSpace(row.SubjectCode),
			Kind:         normalizeKind(row.Kind),
			Periods:      row.Periods,
			FacultyID:    strings.TrimSpace(row.FacultyID),
			FacultyCode:  strings.TrimSpace(row.FacultyCode),
			StudentCount: row.StudentCount,
			YearLevel:    row.YearLevel,
		}
	}
	return courses, nil
}

// ReadRooms parses room rows.
func ReadRooms(r io.Reader) ([]scheduler.Room, error) {
	var rows []RoomRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse rooms: %w", err)
	}
	rooms := make([]scheduler.Room, len(rows))
	for i, row := range rows {
		rooms[i] = scheduler.Room{
			ID:       strings.TrimSpace(row.ID),
			Name:     strings.TrimSpace(row.Name),
			Capacity: row.Capacity,
			Kind:     normalizeKind(row.Kind),
		}
	}
	return rooms, nil
}

// ReadAvailability parses faculty availability windows.
func ReadAvailability(r io.Reader) ([]scheduler.AvailabilityWindow, error) {
	var rows []AvailabilityRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse availability: %w", err)
	}
	windows := make([]scheduler.AvailabilityWindow, len(rows))
	for i, row := range rows {
		windows[i] = scheduler.AvailabilityWindow{
			FacultyID:   strings.TrimSpace(row.FacultyID),
			Day:         row.DayOfWeek,
			StartPeriod: row.StartPeriod,
			EndPeriod:   row.EndPeriod,
		}
	}
	return windows, nil
}

// ReadFixed parses committed slots the run must work around.
func ReadFixed(r io.Reader) ([]scheduler.FixedAssignment, error) {
	var rows []FixedRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse fixed assignments: %w", err)
	}
	fixed := make([]scheduler.FixedAssignment, len(rows))
	for i, row := range rows {
		fixed[i] = scheduler.FixedAssignment{
			SectionID:   strings.TrimSpace(row.SectionID),
			SubjectID:   strings.TrimSpace(row.SubjectID),
			FacultyID:   strings.TrimSpace(row.FacultyID),
			RoomID:      strings.TrimSpace(row.RoomID),
			Day:         row.DayOfWeek,
			StartPeriod: row.StartPeriod,
			EndPeriod:   row.EndPeriod,
		}
	}
	return fixed, nil
}

// ReadRules decodes a YAML rules document. Unknown keys are rejected.
func ReadRules(r io.Reader) (RulesFile, error) {
	var rules RulesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rules); err != nil && err != io.EOF {
		return RulesFile{}, fmt.Errorf("parse rules: %w", err)
	}
	return rules, nil
}

// LoadProblem reads every file named in paths into a problem. The returned
// RulesFile carries the run options from the rules document.
func LoadProblem(paths Paths) (models.TimetableProblem, RulesFile, error) {
	var problem models.TimetableProblem
	var rules RulesFile

	if err := withFile(paths.Courses, func(r io.Reader) (err error) {
		problem.Courses, err = ReadCourses(r)
		return err
	}); err != nil {
		return problem, rules, err
	}
	if err := withFile(paths.Rooms, func(r io.Reader) (err error) {
		problem.Rooms, err = ReadRooms(r)
		return err
	}); err != nil {
		return problem, rules, err
	}
	if paths.Availability != "" {
		if err := withFile(paths.Availability, func(r io.Reader) (err error) {
			problem.Availability, err = ReadAvailability(r)
			return err
		}); err != nil {
			return problem, rules, err
		}
	}
	if paths.Fixed != "" {
		if err := withFile(paths.Fixed, func(r io.Reader) (err error) {
			problem.Fixed, err = ReadFixed(r)
			return err
		}); err != nil {
			return problem, rules, err
		}
	}
	if paths.Rules != "" {
		if err := withFile(paths.Rules, func(r io.Reader) (err error) {
			rules, err = ReadRules(r)
			return err
		}); err != nil {
			return problem, rules, err
		}
	}

	problem.Rules = scheduler.Rules{
		DaysPerWeek:        rules.DaysPerWeek,
		PeriodsPerDay:      rules.PeriodsPerDay,
		LabPeriods:         rules.LabPeriods,
		MinCapacityPercent: rules.MinCapacityPercent,

		MaxPeriodsPerSectionPerDay: rules.MaxSectionPeriods,
	}
	problem.SkipOptimization = rules.SkipOptimization
	return problem, rules, nil
}

// AssignmentRows resolves display labels for a solved schedule.
func AssignmentRows(p *scheduler.Problem, schedule scheduler.Schedule) []AssignmentRow {
	rows := make([]AssignmentRow, 0, len(schedule))
	for _, a := range schedule {
		row := AssignmentRow{
			SessionID:   a.SessionID,
			Day:         dayName(a.Day),
			DayOfWeek:   a.Day,
			StartPeriod: a.StartPeriod,
			EndPeriod:   a.EndPeriod,
			Section:     a.SectionID,
			Subject:     a.SubjectID,
			Faculty:     a.FacultyID,
			Room:        a.RoomID,
			Kind:        string(a.Kind),
		}
		if session, ok := p.Session(a.SessionID); ok {
			row.Section = firstNonEmpty(session.SectionName, session.SectionID)
			row.Subject = firstNonEmpty(session.SubjectCode, session.SubjectID)
			row.Faculty = firstNonEmpty(session.FacultyCode, session.FacultyID)
		}
		if room, ok := p.Room(a.RoomID); ok {
			row.Room = firstNonEmpty(room.Name, room.ID)
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteAssignments encodes rows as CSV with a header line.
func WriteAssignments(w io.Writer, rows []AssignmentRow) error {
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("write assignments: %w", err)
	}
	return nil
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func normalizeKind(raw string) scheduler.SessionKind {
	return scheduler.SessionKind(strings.ToLower(strings.TrimSpace(raw)))
}

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

func dayName(day int) string {
	if day >= 0 && day < len(dayNames) {
		return dayNames[day]
	}
	return fmt.Sprintf("Day %d", day+1)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
