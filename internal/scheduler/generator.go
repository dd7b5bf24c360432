package scheduler

import (
	"fmt"
	"sort"
	"strings"
)

// ProgressFunc receives phase-local progress (0-100). It is observational only.
type ProgressFunc func(percent int, message string)

// Unplaced describes a session the generator could not place, with diagnostics.
type Unplaced struct {
	SessionID      string   `json:"sessionId"`
	SectionID      string   `json:"sectionId"`
	SectionName    string   `json:"sectionName,omitempty"`
	SubjectID      string   `json:"subjectId"`
	SubjectCode    string   `json:"subjectCode,omitempty"`
	FacultyID      string   `json:"facultyId"`
	Kind           string   `json:"kind"`
	StudentCount   int      `json:"studentCount"`
	EligibleRooms  int      `json:"eligibleRooms"`
	FacultyWindows int      `json:"facultyWindows"`
	Reasons        []string `json:"reasons"`
}

// Reason joins the blocking reasons into one line.
func (u Unplaced) Reason() string {
	return strings.Join(u.Reasons, " | ")
}

// GenerateResult is the base schedule plus anything left unplaced.
type GenerateResult struct {
	Schedule Schedule   `json:"schedule"`
	Unplaced []Unplaced `json:"unplaced"`
}

// Complete reports whether every session was placed.
func (r GenerateResult) Complete() bool {
	return len(r.Unplaced) == 0
}

// Generate builds a base schedule with ordered first-fit placement: labs before
// lectures, larger sections first, then days, start periods and rooms in
// ascending order. Committed assignments are never revisited, and the
// problem's fixed assignments are treated as committed from the start.
func Generate(p *Problem, progress ProgressFunc) GenerateResult {
	return generate(p, p, progress)
}

func generate(p *Problem, c Constraints, progress ProgressFunc) GenerateResult {
	order := PlacementOrder(p.sessions)
	result := GenerateResult{Schedule: make(Schedule, 0, len(order))}

	for n, idx := range order {
		if assignment, ok := placeFirstFit(p, c, result.Schedule, idx); ok {
			result.Schedule = append(result.Schedule, assignment)
		} else {
			result.Unplaced = append(result.Unplaced, diagnose(p, c, idx))
		}
		if progress != nil {
			progress((n+1)*100/len(order), fmt.Sprintf("placed %d/%d sessions", len(result.Schedule), len(order)))
		}
	}
	return result
}

// PlacementOrder returns session indexes sorted most-constrained first.
func PlacementOrder(sessions []CourseSession) []int {
	order := make([]int, len(sessions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := sessions[order[a]], sessions[order[b]]
		if sa.Kind != sb.Kind {
			return sa.Kind == KindLab
		}
		return sa.StudentCount > sb.StudentCount
	})
	return order
}

// candidateSlots enumerates the grid for a session in scan order.
func candidateSlots(p *Problem, session CourseSession) []TimeSlot {
	rules := p.rules
	var slots []TimeSlot
	for day := 0; day < rules.DaysPerWeek; day++ {
		for start := 1; start+session.Periods-1 <= rules.PeriodsPerDay; start++ {
			slot := TimeSlot{Day: day, StartPeriod: start, EndPeriod: start + session.Periods - 1}
			if !p.InGrid(slot) {
				continue
			}
			slots = append(slots, slot)
		}
	}
	return slots
}

func placeFirstFit(p *Problem, c Constraints, committed Schedule, idx int) (Assignment, bool) {
	session := p.sessions[idx]
	for _, slot := range candidateSlots(p, session) {
		if !c.SaturdayRuleOK(session, slot) {
			continue
		}
		if !c.FacultyAvailable(session.FacultyID, slot) {
			continue
		}
		for _, r := range p.eligible[idx] {
			candidate := newAssignment(session, p.rooms[r], slot)
			if c.NoConflict(committed, candidate) {
				return candidate, true
			}
		}
	}
	return Assignment{}, false
}

func diagnose(p *Problem, c Constraints, idx int) Unplaced {
	session := p.sessions[idx]
	windows := p.availability[session.FacultyID]
	u := Unplaced{
		SessionID:      session.ID,
		SectionID:      session.SectionID,
		SectionName:    session.SectionName,
		SubjectID:      session.SubjectID,
		SubjectCode:    session.SubjectCode,
		FacultyID:      session.FacultyID,
		Kind:           string(session.Kind),
		StudentCount:   session.StudentCount,
		EligibleRooms:  len(p.eligible[idx]),
		FacultyWindows: len(windows),
	}

	if u.EligibleRooms == 0 {
		u.Reasons = append(u.Reasons, fmt.Sprintf("no eligible room: need a %s room with capacity >= %d", session.Kind, p.rules.RequiredCapacity(session.StudentCount)))
	}

	open := 0
	for _, slot := range candidateSlots(p, session) {
		if c.SaturdayRuleOK(session, slot) && c.FacultyAvailable(session.FacultyID, slot) {
			open++
		}
	}
	if open == 0 {
		if len(windows) > 0 {
			u.Reasons = append(u.Reasons, fmt.Sprintf("faculty %s windows do not allow a %d-period block", session.FacultyID, session.Periods))
		} else {
			u.Reasons = append(u.Reasons, "no grid slot satisfies the half-day rule")
		}
	} else if limit := p.rules.MaxPeriodsPerSectionPerDay; limit > 0 && session.Periods > limit {
		u.Reasons = append(u.Reasons, fmt.Sprintf("%d-period block exceeds the section daily cap of %d", session.Periods, limit))
	} else if u.EligibleRooms > 0 {
		u.Reasons = append(u.Reasons, fmt.Sprintf("all %d candidate slots conflict with committed assignments", open))
	}
	return u
}
