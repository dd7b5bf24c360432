package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMalformedInput marks problems that cannot be handed to the generator.
var ErrMalformedInput = errors.New("malformed scheduling input")

// InputError lists every issue found while validating a problem.
type InputError struct {
	Issues []string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMalformedInput.Error(), strings.Join(e.Issues, "; "))
}

// Is lets errors.Is match ErrMalformedInput.
func (e *InputError) Is(target error) bool {
	return target == ErrMalformedInput
}

// CourseSession is one unit of teaching that must be placed exactly once.
type CourseSession struct {
	ID           string      `json:"id"`
	SectionID    string      `json:"sectionId"`
	SectionName  string      `json:"sectionName,omitempty"`
	SubjectID    string      `json:"subjectId"`
	SubjectCode  string      `json:"subjectCode,omitempty"`
	Kind         SessionKind `json:"kind"`
	Periods      int         `json:"periods"`
	FacultyID    string      `json:"facultyId"`
	FacultyCode  string      `json:"facultyCode,omitempty"`
	StudentCount int         `json:"studentCount"`
	YearLevel    int         `json:"yearLevel"`
}

// Room is a bookable teaching space.
type Room struct {
	ID       string      `json:"id"`
	Name     string      `json:"name"`
	Capacity int         `json:"capacity"`
	Kind     SessionKind `json:"kind"`
}

// AvailabilityWindow is a period range during which a faculty member may teach.
type AvailabilityWindow struct {
	FacultyID   string `json:"facultyId"`
	Day         int    `json:"dayOfWeek"`
	StartPeriod int    `json:"startPeriod"`
	EndPeriod   int    `json:"endPeriod"`
}

// FixedAssignment is a slot committed outside the run, typically a lab block
// placed by an earlier pass. It occupies its room, faculty member and section
// but is never moved and never returned as part of a schedule.
type FixedAssignment struct {
	SectionID   string `json:"sectionId"`
	SubjectID   string `json:"subjectId,omitempty"`
	FacultyID   string `json:"facultyId"`
	RoomID      string `json:"roomId"`
	Day         int    `json:"day"`
	StartPeriod int    `json:"startPeriod"`
	EndPeriod   int    `json:"endPeriod"`
}

// Constraints is the feasibility predicate set shared by the generator and optimizer.
type Constraints interface {
	CapacityOK(course CourseSession, room Room) bool
	FacultyAvailable(facultyID string, slot TimeSlot) bool
	NoConflict(schedule Schedule, candidate Assignment) bool
	SaturdayRuleOK(course CourseSession, slot TimeSlot) bool
}

// Problem is the immutable description of one scheduling run.
type Problem struct {
	rules        Rules
	sessions     []CourseSession
	rooms        []Room
	availability map[string][]TimeSlot
	sessionIndex map[string]int
	roomIndex    map[string]int
	eligible     [][]int
	fixed        Schedule
}

var _ Constraints = (*Problem)(nil)

// NewProblem validates the input and builds a Problem. Lab sessions are
// normalised to the configured lab block size, lectures default to one period.
// Fixed assignments block their periods for every session of the run.
func NewProblem(courses []CourseSession, rooms []Room, availability []AvailabilityWindow, rules Rules, fixed ...FixedAssignment) (*Problem, error) {
	rules = rules.withDefaults()
	var issues []string

	if rules.PeriodsPerDay%2 != 0 {
		issues = append(issues, fmt.Sprintf("periodsPerDay must be even, got %d", rules.PeriodsPerDay))
	}
	if rules.DaysPerWeek > 7 {
		issues = append(issues, fmt.Sprintf("daysPerWeek must be <= 7, got %d", rules.DaysPerWeek))
	}
	if rules.LabPeriods > rules.MorningEnd() {
		issues = append(issues, fmt.Sprintf("labPeriods (%d) cannot exceed the %d period half-day block", rules.LabPeriods, rules.MorningEnd()))
	}
	if rules.MinCapacityPercent < 0 || rules.MinCapacityPercent > 100 {
		issues = append(issues, fmt.Sprintf("minCapacityPercent must be within 0-100, got %d", rules.MinCapacityPercent))
	}
	if rules.MaxPeriodsPerSectionPerDay < 0 {
		issues = append(issues, fmt.Sprintf("maxPeriodsPerSectionPerDay must not be negative, got %d", rules.MaxPeriodsPerSectionPerDay))
	}
	if len(courses) == 0 {
		issues = append(issues, "at least one course session is required")
	}

	p := &Problem{
		rules:        rules,
		sessions:     make([]CourseSession, len(courses)),
		rooms:        make([]Room, len(rooms)),
		availability: make(map[string][]TimeSlot),
		sessionIndex: make(map[string]int, len(courses)),
		roomIndex:    make(map[string]int, len(rooms)),
	}

	for i, course := range courses {
		course.Kind = SessionKind(strings.ToLower(string(course.Kind)))
		if course.Kind == "" {
			course.Kind = KindLecture
		}
		if course.ID == "" {
			course.ID = fmt.Sprintf("%s/%s#%d", course.SectionID, course.SubjectID, i)
		}
		label := fmt.Sprintf("courses[%d]", i)
		if course.SectionID == "" {
			issues = append(issues, label+": sectionId is required")
		}
		if course.SubjectID == "" {
			issues = append(issues, label+": subjectId is required")
		}
		if course.FacultyID == "" {
			issues = append(issues, label+": facultyId is required")
		}
		if !course.Kind.Valid() {
			issues = append(issues, fmt.Sprintf("%s: unsupported kind %q", label, course.Kind))
		}
		if course.StudentCount <= 0 {
			issues = append(issues, label+": studentCount must be positive")
		}
		if course.YearLevel <= 0 {
			issues = append(issues, label+": yearLevel must be positive")
		}
		switch course.Kind {
		case KindLab:
			course.Periods = rules.LabPeriods
		default:
			if course.Periods == 0 {
				course.Periods = 1
			}
			if course.Periods < 1 || course.Periods > rules.MorningEnd() {
				issues = append(issues, fmt.Sprintf("%s: periods must be within 1-%d, got %d", label, rules.MorningEnd(), course.Periods))
			}
		}
		if _, dup := p.sessionIndex[course.ID]; dup {
			issues = append(issues, fmt.Sprintf("%s: duplicate session id %q", label, course.ID))
		}
		p.sessionIndex[course.ID] = i
		p.sessions[i] = course
	}

	for i, room := range rooms {
		room.Kind = SessionKind(strings.ToLower(string(room.Kind)))
		if room.Kind == "" {
			room.Kind = KindLecture
		}
		label := fmt.Sprintf("rooms[%d]", i)
		if room.ID == "" {
			issues = append(issues, label+": id is required")
		}
		if room.Capacity <= 0 {
			issues = append(issues, label+": capacity must be positive")
		}
		if !room.Kind.Valid() {
			issues = append(issues, fmt.Sprintf("%s: unsupported kind %q", label, room.Kind))
		}
		if _, dup := p.roomIndex[room.ID]; dup && room.ID != "" {
			issues = append(issues, fmt.Sprintf("%s: duplicate room id %q", label, room.ID))
		}
		p.roomIndex[room.ID] = i
		p.rooms[i] = room
	}

	for i, window := range availability {
		label := fmt.Sprintf("availability[%d]", i)
		if window.FacultyID == "" {
			issues = append(issues, label+": facultyId is required")
			continue
		}
		if window.Day < 0 || window.Day >= rules.DaysPerWeek {
			issues = append(issues, fmt.Sprintf("%s: dayOfWeek must be within 0-%d", label, rules.DaysPerWeek-1))
			continue
		}
		if window.StartPeriod < 1 || window.EndPeriod > rules.PeriodsPerDay || window.StartPeriod > window.EndPeriod {
			issues = append(issues, fmt.Sprintf("%s: invalid period range %d-%d", label, window.StartPeriod, window.EndPeriod))
			continue
		}
		p.availability[window.FacultyID] = append(p.availability[window.FacultyID], TimeSlot{
			Day:         window.Day,
			StartPeriod: window.StartPeriod,
			EndPeriod:   window.EndPeriod,
		})
	}

	issues = append(issues, p.addFixed(fixed)...)

	if len(issues) > 0 {
		return nil, &InputError{Issues: issues}
	}

	p.eligible = make([][]int, len(p.sessions))
	for i, session := range p.sessions {
		var idx []int
		for r, room := range p.rooms {
			if p.CapacityOK(session, room) {
				idx = append(idx, r)
			}
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return p.rooms[idx[a]].Capacity < p.rooms[idx[b]].Capacity
		})
		p.eligible[i] = idx
	}
	return p, nil
}

func (p *Problem) addFixed(fixed []FixedAssignment) []string {
	var issues []string
	for i, f := range fixed {
		label := fmt.Sprintf("existingAssignments[%d]", i)
		if f.SectionID == "" || f.FacultyID == "" || f.RoomID == "" {
			issues = append(issues, label+": sectionId, facultyId and roomId are required")
			continue
		}
		a := Assignment{
			SessionID:   fmt.Sprintf("fixed#%d", i),
			SectionID:   f.SectionID,
			SubjectID:   f.SubjectID,
			FacultyID:   f.FacultyID,
			RoomID:      f.RoomID,
			Day:         f.Day,
			StartPeriod: f.StartPeriod,
			EndPeriod:   f.EndPeriod,
		}
		if !p.InGrid(a.Slot()) {
			issues = append(issues, fmt.Sprintf("%s: %s is off grid or crosses the break", label, a.Slot()))
			continue
		}
		clash := false
		for _, prev := range p.fixed {
			if prev.ClashesWith(a) {
				issues = append(issues, fmt.Sprintf("%s: clashes with %s", label, prev.SessionID))
				clash = true
				break
			}
		}
		if !clash {
			p.fixed = append(p.fixed, a)
		}
	}

	if limit := p.rules.MaxPeriodsPerSectionPerDay; limit > 0 {
		for _, load := range sectionLoads(p.fixed) {
			if load.periods > limit {
				issues = append(issues, fmt.Sprintf("existingAssignments: section %s already has %d periods on day %d, above the daily cap of %d", load.key.owner, load.periods, load.key.day, limit))
			}
		}
	}
	return issues
}

// Rules returns the normalised rules.
func (p *Problem) Rules() Rules { return p.rules }

// Sessions returns a copy of the normalised course sessions in input order.
func (p *Problem) Sessions() []CourseSession {
	out := make([]CourseSession, len(p.sessions))
	copy(out, p.sessions)
	return out
}

// Rooms returns a copy of the rooms in input order.
func (p *Problem) Rooms() []Room {
	out := make([]Room, len(p.rooms))
	copy(out, p.rooms)
	return out
}

// Session looks up a session by id.
func (p *Problem) Session(id string) (CourseSession, bool) {
	idx, ok := p.sessionIndex[id]
	if !ok {
		return CourseSession{}, false
	}
	return p.sessions[idx], true
}

// Room looks up a room by id.
func (p *Problem) Room(id string) (Room, bool) {
	idx, ok := p.roomIndex[id]
	if !ok {
		return Room{}, false
	}
	return p.rooms[idx], true
}

// EligibleRooms returns the rooms a session may use, ascending by capacity.
func (p *Problem) EligibleRooms(sessionID string) []Room {
	idx, ok := p.sessionIndex[sessionID]
	if !ok {
		return nil
	}
	rooms := make([]Room, 0, len(p.eligible[idx]))
	for _, r := range p.eligible[idx] {
		rooms = append(rooms, p.rooms[r])
	}
	return rooms
}

// Fixed returns a copy of the committed assignments the run must work around.
func (p *Problem) Fixed() Schedule {
	return p.fixed.Clone()
}

// IneligibleSessions lists sessions for which no room matches kind and capacity.
func (p *Problem) IneligibleSessions() []CourseSession {
	var out []CourseSession
	for i, session := range p.sessions {
		if len(p.eligible[i]) == 0 {
			out = append(out, session)
		}
	}
	return out
}

// AvailabilityWindows returns the windows registered for a faculty member.
func (p *Problem) AvailabilityWindows(facultyID string) []TimeSlot {
	return p.availability[facultyID]
}

// CapacityOK reports whether the room kind matches and the room is large enough.
func (p *Problem) CapacityOK(course CourseSession, room Room) bool {
	return course.Kind == room.Kind && room.Capacity >= p.rules.RequiredCapacity(course.StudentCount)
}

// FacultyAvailable reports whether the slot sits fully inside one of the
// faculty member's windows. No windows means no restriction.
func (p *Problem) FacultyAvailable(facultyID string, slot TimeSlot) bool {
	windows, ok := p.availability[facultyID]
	if !ok || len(windows) == 0 {
		return true
	}
	for _, w := range windows {
		if w.Day == slot.Day && w.StartPeriod <= slot.StartPeriod && slot.EndPeriod <= w.EndPeriod {
			return true
		}
	}
	return false
}

// NoConflict reports whether candidate can join the schedule without sharing a
// room, faculty member or section with an overlapping assignment, fixed ones
// included, and without pushing its section past the daily cap.
func (p *Problem) NoConflict(schedule Schedule, candidate Assignment) bool {
	return p.noConflictExcept(schedule, candidate, -1)
}

// SaturdayRuleOK rejects afternoon periods on the last working day unless the
// course belongs to year 1.
func (p *Problem) SaturdayRuleOK(course CourseSession, slot TimeSlot) bool {
	if slot.Day != p.rules.LastDay() {
		return true
	}
	if !slot.Afternoon(p.rules.MorningEnd()) {
		return true
	}
	return course.YearLevel == 1
}

// InGrid reports whether the slot lies on the grid without crossing the break.
func (p *Problem) InGrid(slot TimeSlot) bool {
	if slot.Day < 0 || slot.Day >= p.rules.DaysPerWeek {
		return false
	}
	if slot.StartPeriod < 1 || slot.EndPeriod > p.rules.PeriodsPerDay || slot.StartPeriod > slot.EndPeriod {
		return false
	}
	return !slot.StraddlesBreak(p.rules.MorningEnd())
}

// noConflictExcept is NoConflict with schedule[skip] ignored, for relocations.
func (p *Problem) noConflictExcept(schedule Schedule, candidate Assignment, skip int) bool {
	for _, existing := range p.fixed {
		if existing.ClashesWith(candidate) {
			return false
		}
	}
	for i, existing := range schedule {
		if i == skip {
			continue
		}
		if existing.ClashesWith(candidate) {
			return false
		}
	}
	return p.withinDailyCap(schedule, candidate, skip)
}

func (p *Problem) withinDailyCap(schedule Schedule, candidate Assignment, skip int) bool {
	limit := p.rules.MaxPeriodsPerSectionPerDay
	if limit <= 0 {
		return true
	}
	load := candidate.Slot().Length() +
		sectionLoadOn(p.fixed, candidate.SectionID, candidate.Day, -1) +
		sectionLoadOn(schedule, candidate.SectionID, candidate.Day, skip)
	return load <= limit
}

func sectionLoadOn(s Schedule, section string, day, skip int) int {
	total := 0
	for i, a := range s {
		if i != skip && a.SectionID == section && a.Day == day {
			total += a.Slot().Length()
		}
	}
	return total
}

type sectionLoad struct {
	key     dayKey
	periods int
	indexes []int
}

// sectionLoads totals periods per (section, day) in first-seen order. Indexes
// point into s.
func sectionLoads(s Schedule) []sectionLoad {
	var loads []sectionLoad
	pos := make(map[dayKey]int)
	for i, a := range s {
		key := dayKey{owner: a.SectionID, day: a.Day}
		n, ok := pos[key]
		if !ok {
			n = len(loads)
			pos[key] = n
			loads = append(loads, sectionLoad{key: key})
		}
		loads[n].periods += a.Slot().Length()
		loads[n].indexes = append(loads[n].indexes, i)
	}
	return loads
}
