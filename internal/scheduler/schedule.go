package scheduler

import "fmt"

// Assignment binds one course session to a room and a time slot.
type Assignment struct {
	SessionID   string      `json:"sessionId"`
	SectionID   string      `json:"sectionId"`
	SubjectID   string      `json:"subjectId"`
	FacultyID   string      `json:"facultyId"`
	RoomID      string      `json:"roomId"`
	Kind        SessionKind `json:"kind"`
	Day         int         `json:"day"`
	StartPeriod int         `json:"startPeriod"`
	EndPeriod   int         `json:"endPeriod"`
}

// Slot returns the assignment's time slot.
func (a Assignment) Slot() TimeSlot {
	return TimeSlot{Day: a.Day, StartPeriod: a.StartPeriod, EndPeriod: a.EndPeriod}
}

// ClashesWith reports whether both assignments overlap in time and share a
// room, faculty member or section.
func (a Assignment) ClashesWith(other Assignment) bool {
	if !a.Slot().Overlaps(other.Slot()) {
		return false
	}
	return a.RoomID == other.RoomID || a.FacultyID == other.FacultyID || a.SectionID == other.SectionID
}

func (a Assignment) moved(slot TimeSlot) Assignment {
	a.Day = slot.Day
	a.StartPeriod = slot.StartPeriod
	a.EndPeriod = slot.EndPeriod
	return a
}

func newAssignment(session CourseSession, room Room, slot TimeSlot) Assignment {
	return Assignment{
		SessionID:   session.ID,
		SectionID:   session.SectionID,
		SubjectID:   session.SubjectID,
		FacultyID:   session.FacultyID,
		RoomID:      room.ID,
		Kind:        session.Kind,
		Day:         slot.Day,
		StartPeriod: slot.StartPeriod,
		EndPeriod:   slot.EndPeriod,
	}
}

// Schedule is an ordered collection of assignments, at most one per session.
type Schedule []Assignment

// Clone returns an independent copy.
func (s Schedule) Clone() Schedule {
	if s == nil {
		return nil
	}
	out := make(Schedule, len(s))
	copy(out, s)
	return out
}

// TotalPeriods sums the periods occupied by every assignment.
func (s Schedule) TotalPeriods() int {
	total := 0
	for _, a := range s {
		total += a.Slot().Length()
	}
	return total
}

// Violation describes a broken hard constraint.
type Violation struct {
	Rule    string `json:"rule"`
	Message string `json:"message"`
	Indexes []int  `json:"indexes"`
}

// Violation rule names.
const (
	RuleOverlap      = "NON_OVERLAP"
	RuleGrid         = "GRID"
	RuleSaturday     = "SATURDAY"
	RuleCapacity     = "CAPACITY"
	RuleAvailability = "AVAILABILITY"
	RuleBlockLength  = "BLOCK_LENGTH"
	RuleUnknown      = "UNKNOWN_REFERENCE"
	RuleDuplicate    = "DUPLICATE_SESSION"
	RuleDailyCap     = "SECTION_DAILY_CAP"
)

// Validate checks a schedule from scratch against every hard constraint.
func Validate(p *Problem, s Schedule) []Violation {
	var violations []Violation
	seen := make(map[string]int, len(s))

	for i, a := range s {
		if prev, dup := seen[a.SessionID]; dup {
			violations = append(violations, Violation{
				Rule:    RuleDuplicate,
				Message: fmt.Sprintf("session %s assigned twice", a.SessionID),
				Indexes: []int{prev, i},
			})
		}
		seen[a.SessionID] = i

		session, ok := p.Session(a.SessionID)
		if !ok {
			violations = append(violations, Violation{Rule: RuleUnknown, Message: fmt.Sprintf("unknown session %s", a.SessionID), Indexes: []int{i}})
			continue
		}
		room, ok := p.Room(a.RoomID)
		if !ok {
			violations = append(violations, Violation{Rule: RuleUnknown, Message: fmt.Sprintf("unknown room %s", a.RoomID), Indexes: []int{i}})
			continue
		}
		slot := a.Slot()
		if !p.InGrid(slot) {
			violations = append(violations, Violation{Rule: RuleGrid, Message: fmt.Sprintf("session %s at %s is off grid or crosses the break", a.SessionID, slot), Indexes: []int{i}})
		}
		if slot.Length() != session.Periods {
			violations = append(violations, Violation{Rule: RuleBlockLength, Message: fmt.Sprintf("session %s needs %d periods, got %d", a.SessionID, session.Periods, slot.Length()), Indexes: []int{i}})
		}
		if !p.SaturdayRuleOK(session, slot) {
			violations = append(violations, Violation{Rule: RuleSaturday, Message: fmt.Sprintf("session %s (year %d) placed in the half-day afternoon", a.SessionID, session.YearLevel), Indexes: []int{i}})
		}
		if !p.CapacityOK(session, room) {
			violations = append(violations, Violation{Rule: RuleCapacity, Message: fmt.Sprintf("room %s cannot host session %s", room.ID, a.SessionID), Indexes: []int{i}})
		}
		if !p.FacultyAvailable(a.FacultyID, slot) {
			violations = append(violations, Violation{Rule: RuleAvailability, Message: fmt.Sprintf("faculty %s unavailable at %s", a.FacultyID, slot), Indexes: []int{i}})
		}
		for _, f := range p.fixed {
			if a.ClashesWith(f) {
				violations = append(violations, Violation{Rule: RuleOverlap, Message: fmt.Sprintf("session %s clashes with fixed section %s slot at %s", a.SessionID, f.SectionID, f.Slot()), Indexes: []int{i}})
			}
		}
	}

	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			if s[i].ClashesWith(s[j]) {
				violations = append(violations, Violation{
					Rule:    RuleOverlap,
					Message: fmt.Sprintf("sessions %s and %s clash at %s", s[i].SessionID, s[j].SessionID, s[i].Slot()),
					Indexes: []int{i, j},
				})
			}
		}
	}
	violations = append(violations, dailyCapViolations(p, s)...)
	return violations
}

// dailyCapViolations reports (section, day) pairs above the cap. Fixed periods
// count towards the load but only schedule indexes are reported.
func dailyCapViolations(p *Problem, s Schedule) []Violation {
	limit := p.rules.MaxPeriodsPerSectionPerDay
	if limit <= 0 {
		return nil
	}
	var violations []Violation
	for _, load := range sectionLoads(s) {
		total := load.periods + sectionLoadOn(p.fixed, load.key.owner, load.key.day, -1)
		if total > limit {
			violations = append(violations, Violation{
				Rule:    RuleDailyCap,
				Message: fmt.Sprintf("section %s has %d periods on day %d, cap is %d", load.key.owner, total, load.key.day, limit),
				Indexes: load.indexes,
			})
		}
	}
	return violations
}

// Overlapping reports whether any pair of assignments violates non-overlap.
func Overlapping(s Schedule) bool {
	for i := 0; i < len(s); i++ {
		for j := i + 1; j < len(s); j++ {
			if s[i].ClashesWith(s[j]) {
				return true
			}
		}
	}
	return false
}
