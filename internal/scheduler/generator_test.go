package scheduler

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTwoLecturesShareFaculty(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{lecture("S1", "MATH", "F1", 30, 1), lecture("S2", "MATH", "F1", 30, 1)},
		[]Room{{ID: "R1", Capacity: 40}, {ID: "R2", Capacity: 45}},
		[]AvailabilityWindow{{FacultyID: "F1", Day: 0, StartPeriod: 1, EndPeriod: 8}},
		Rules{},
	)

	result := Generate(p, nil)
	require.True(t, result.Complete())
	require.Len(t, result.Schedule, 2)
	assert.False(t, result.Schedule[0].ClashesWith(result.Schedule[1]))
	assert.Empty(t, Validate(p, result.Schedule))

	first, second := result.Schedule[0], result.Schedule[1]
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 1, EndPeriod: 1}, first.Slot())
	assert.Equal(t, "R1", first.RoomID)
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 2, EndPeriod: 2}, second.Slot())
}

func TestGenerateLabWithoutLabRoomIsUnplaced(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{lab("S1", "CHEM", "F1", 30, 1)},
		[]Room{{ID: "R1", Capacity: 40, Kind: KindLecture}},
		nil,
		Rules{},
	)

	require.Len(t, p.IneligibleSessions(), 1)

	result := Generate(p, nil)
	assert.False(t, result.Complete())
	assert.Empty(t, result.Schedule)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "S1/CHEM#0", result.Unplaced[0].SessionID)
	assert.Equal(t, 0, result.Unplaced[0].EligibleRooms)
	assert.Contains(t, result.Unplaced[0].Reason(), "no eligible room: need a lab room with capacity >= 30")
}

func TestGenerateUnplacedReasonUsesEffectiveCapacity(t *testing.T) {
	// 48 students at 85% need ceil(4800/85) = 57 seats.
	p := mustProblem(t,
		[]CourseSession{lecture("S1", "BIO", "F1", 48, 1)},
		[]Room{{ID: "R50", Capacity: 50}, {ID: "R56", Capacity: 56}},
		nil,
		Rules{MinCapacityPercent: 85},
	)

	result := Generate(p, nil)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, 0, result.Unplaced[0].EligibleRooms)
	assert.Contains(t, result.Unplaced[0].Reason(), "no eligible room: need a lecture room with capacity >= 57")
}

func TestGenerateChoosesOnlyRoomLargeEnough(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{lecture("S1", "BIO", "F1", 48, 1)},
		[]Room{{ID: "R40", Capacity: 40}, {ID: "R50", Capacity: 50}},
		nil,
		Rules{},
	)

	eligible := p.EligibleRooms("S1/BIO#0")
	require.Len(t, eligible, 1)
	assert.Equal(t, "R50", eligible[0].ID)

	result := Generate(p, nil)
	require.Len(t, result.Schedule, 1)
	assert.Equal(t, "R50", result.Schedule[0].RoomID)
}

func TestGenerateHalfDayAfternoon(t *testing.T) {
	saturdayAfternoon := []AvailabilityWindow{{FacultyID: "F1", Day: 5, StartPeriod: 5, EndPeriod: 8}}
	rooms := []Room{{ID: "R1", Capacity: 40}}

	t.Run("year two is rejected", func(t *testing.T) {
		p := mustProblem(t, []CourseSession{lecture("S1", "HIST", "F1", 30, 2)}, rooms, saturdayAfternoon, Rules{})

		result := Generate(p, nil)
		assert.Empty(t, result.Schedule)
		require.Len(t, result.Unplaced, 1)
		assert.Contains(t, result.Unplaced[0].Reason(), "windows do not allow")
	})

	t.Run("year two moves to another day", func(t *testing.T) {
		windows := append([]AvailabilityWindow{{FacultyID: "F1", Day: 2, StartPeriod: 5, EndPeriod: 8}}, saturdayAfternoon...)
		p := mustProblem(t, []CourseSession{lecture("S1", "HIST", "F1", 30, 2)}, rooms, windows, Rules{})

		result := Generate(p, nil)
		require.Len(t, result.Schedule, 1)
		assert.Equal(t, TimeSlot{Day: 2, StartPeriod: 5, EndPeriod: 5}, result.Schedule[0].Slot())
	})

	t.Run("year one is allowed", func(t *testing.T) {
		p := mustProblem(t, []CourseSession{lecture("S1", "HIST", "F1", 30, 1)}, rooms, saturdayAfternoon, Rules{})

		result := Generate(p, nil)
		require.Len(t, result.Schedule, 1)
		assert.Equal(t, TimeSlot{Day: 5, StartPeriod: 5, EndPeriod: 5}, result.Schedule[0].Slot())
	})
}

func TestGenerateContentionReportsConflicts(t *testing.T) {
	// One room, one day with a single period: the second session has nowhere to go.
	p := mustProblem(t,
		[]CourseSession{lecture("S1", "M", "F1", 10, 1), lecture("S2", "M", "F2", 10, 1)},
		[]Room{{ID: "R1", Capacity: 10}},
		[]AvailabilityWindow{
			{FacultyID: "F1", Day: 0, StartPeriod: 1, EndPeriod: 1},
			{FacultyID: "F2", Day: 0, StartPeriod: 1, EndPeriod: 1},
		},
		Rules{},
	)

	result := Generate(p, nil)
	require.Len(t, result.Schedule, 1)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "S2/M#1", result.Unplaced[0].SessionID)
	assert.Contains(t, result.Unplaced[0].Reason(), "all 1 candidate slots conflict")
}

func TestGenerateWorksAroundFixedAssignments(t *testing.T) {
	fixed := []FixedAssignment{
		{SectionID: "S1", FacultyID: "FX", RoomID: "LAB1", Day: 0, StartPeriod: 1, EndPeriod: 4},
		{SectionID: "SX", FacultyID: "FY", RoomID: "R2", Day: 0, StartPeriod: 1, EndPeriod: 4},
		{SectionID: "SY", FacultyID: "F3", RoomID: "LAB2", Day: 0, StartPeriod: 1, EndPeriod: 4},
	}
	p, err := NewProblem(
		[]CourseSession{
			lecture("S1", "M", "F1", 18, 1),
			lecture("S2", "E", "F2", 30, 1),
			lecture("S3", "H", "F3", 15, 1),
		},
		[]Room{{ID: "R1", Capacity: 20}, {ID: "R2", Capacity: 40}},
		nil,
		Rules{},
		fixed...,
	)
	require.NoError(t, err)
	require.Len(t, p.Fixed(), 3)

	result := Generate(p, nil)
	require.True(t, result.Complete(), "unplaced: %+v", result.Unplaced)
	require.Len(t, result.Schedule, 3)
	assert.Empty(t, Validate(p, result.Schedule))

	bySection := map[string]Assignment{}
	for _, a := range result.Schedule {
		bySection[a.SectionID] = a
	}
	// Room R2 is held by a fixed slot.
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 5, EndPeriod: 5}, bySection["S2"].Slot())
	assert.Equal(t, "R2", bySection["S2"].RoomID)
	// Section S1 is in its fixed lab.
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 5, EndPeriod: 5}, bySection["S1"].Slot())
	assert.Equal(t, "R1", bySection["S1"].RoomID)
	// Faculty F3 teaches the fixed slot, then both rooms are taken at period 5.
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 6, EndPeriod: 6}, bySection["S3"].Slot())

	clash := Schedule{{SessionID: "S1/M#0", SectionID: "S1", SubjectID: "M", FacultyID: "F1", RoomID: "R1", Kind: KindLecture, Day: 0, StartPeriod: 2, EndPeriod: 2}}
	violations := Validate(p, clash)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleOverlap, violations[0].Rule)
	assert.Contains(t, violations[0].Message, "fixed section S1")
}

func TestGenerateHonoursSectionDailyCap(t *testing.T) {
	p, err := NewProblem(
		[]CourseSession{lecture("S1", "M", "F1", 10, 1), lecture("S1", "E", "F2", 10, 1), lecture("S1", "H", "F3", 10, 1)},
		[]Room{{ID: "R1", Capacity: 10}},
		nil,
		Rules{MaxPeriodsPerSectionPerDay: 2},
		FixedAssignment{SectionID: "S1", FacultyID: "FX", RoomID: "LAB1", Day: 0, StartPeriod: 1, EndPeriod: 1},
	)
	require.NoError(t, err)

	result := Generate(p, nil)
	require.True(t, result.Complete(), "unplaced: %+v", result.Unplaced)
	assert.Empty(t, Validate(p, result.Schedule))

	var slots []TimeSlot
	for _, a := range result.Schedule {
		slots = append(slots, a.Slot())
	}
	assert.Equal(t, []TimeSlot{
		{Day: 0, StartPeriod: 2, EndPeriod: 2},
		{Day: 1, StartPeriod: 1, EndPeriod: 1},
		{Day: 1, StartPeriod: 2, EndPeriod: 2},
	}, slots)

	crowded := result.Schedule.Clone()
	crowded[1] = crowded[1].moved(TimeSlot{Day: 0, StartPeriod: 3, EndPeriod: 3})
	violations := Validate(p, crowded)
	require.Len(t, violations, 1)
	assert.Equal(t, RuleDailyCap, violations[0].Rule)
	assert.Equal(t, []int{0, 1}, violations[0].Indexes)
	assert.Contains(t, violations[0].Message, "section S1 has 3 periods on day 0")
}

func TestGenerateReportsBlockAboveDailyCap(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{lab("S1", "CHEM", "F1", 20, 1)},
		[]Room{{ID: "LAB1", Capacity: 30, Kind: KindLab}},
		nil,
		Rules{MaxPeriodsPerSectionPerDay: 3},
	)

	result := Generate(p, nil)
	require.Len(t, result.Unplaced, 1)
	assert.Equal(t, "4-period block exceeds the section daily cap of 3", result.Unplaced[0].Reason())
}

func TestPlacementOrder(t *testing.T) {
	sessions := []CourseSession{
		{ID: "small-lecture", Kind: KindLecture, StudentCount: 10},
		{ID: "big-lecture", Kind: KindLecture, StudentCount: 50},
		{ID: "small-lab", Kind: KindLab, StudentCount: 20},
		{ID: "tie-lecture", Kind: KindLecture, StudentCount: 10},
		{ID: "big-lab", Kind: KindLab, StudentCount: 40},
	}

	var ids []string
	for _, idx := range PlacementOrder(sessions) {
		ids = append(ids, sessions[idx].ID)
	}
	assert.Equal(t, []string{"big-lab", "small-lab", "big-lecture", "small-lecture", "tie-lecture"}, ids)
}

func TestGenerateReportsProgress(t *testing.T) {
	p := mediumProblem(t)

	var last int
	calls := 0
	result := Generate(p, func(percent int, _ string) {
		assert.GreaterOrEqual(t, percent, last)
		last = percent
		calls++
	})

	assert.Equal(t, len(p.Sessions()), calls)
	assert.Equal(t, 100, last)
	assert.True(t, result.Complete())
}

func TestGenerateMediumProblemIsValid(t *testing.T) {
	p := mediumProblem(t)

	result := Generate(p, nil)
	require.True(t, result.Complete(), "unplaced: %+v", result.Unplaced)
	assert.Len(t, result.Schedule, len(p.Sessions()))
	assert.Empty(t, Validate(p, result.Schedule))

	for _, a := range result.Schedule {
		if a.Kind == KindLab {
			assert.Equal(t, DefaultLabPeriods, a.Slot().Length())
		}
		assert.False(t, a.Slot().StraddlesBreak(4))
	}
}

func TestValidateDetectsViolations(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{{ID: "a", SectionID: "S1", SubjectID: "M", FacultyID: "F1", StudentCount: 30, YearLevel: 2}, {ID: "b", SectionID: "S1", SubjectID: "E", FacultyID: "F2", StudentCount: 30, YearLevel: 2}},
		[]Room{{ID: "R1", Capacity: 20}, {ID: "R2", Capacity: 40}},
		nil,
		Rules{},
	)

	violations := Validate(p, Schedule{
		{SessionID: "a", SectionID: "S1", FacultyID: "F1", RoomID: "R1", Kind: KindLecture, Day: 5, StartPeriod: 6, EndPeriod: 6},
		{SessionID: "b", SectionID: "S1", FacultyID: "F2", RoomID: "R2", Kind: KindLecture, Day: 5, StartPeriod: 6, EndPeriod: 6},
	})

	rules := map[string]bool{}
	for _, v := range violations {
		rules[v.Rule] = true
	}
	assert.True(t, rules[RuleCapacity])
	assert.True(t, rules[RuleSaturday])
	assert.True(t, rules[RuleOverlap])
	assert.False(t, rules[RuleGrid])
}

// mediumProblem has four sections, each with five lectures and one lab, taught
// by a handful of shared faculty.
func mediumProblem(t *testing.T) *Problem {
	t.Helper()
	return mediumProblemWith(t, Rules{})
}

func mediumProblemWith(t *testing.T, rules Rules, fixed ...FixedAssignment) *Problem {
	t.Helper()
	var courses []CourseSession
	subjects := []string{"MATH", "ENG", "HIST", "BIO", "ART"}
	for s := 1; s <= 4; s++ {
		section := fmt.Sprintf("S%d", s)
		for i, subject := range subjects {
			faculty := fmt.Sprintf("F%d", (i+s)%4+1)
			courses = append(courses, lecture(section, subject, faculty, 25+s*5, s%2+1))
		}
		courses = append(courses, lab(section, "CHEM", "F5", 25+s*5, s%2+1))
	}
	rooms := []Room{
		{ID: "R1", Capacity: 30},
		{ID: "R2", Capacity: 40},
		{ID: "R3", Capacity: 50},
		{ID: "LAB1", Capacity: 50, Kind: KindLab},
	}
	windows := []AvailabilityWindow{
		{FacultyID: "F5", Day: 0, StartPeriod: 1, EndPeriod: 8},
		{FacultyID: "F5", Day: 2, StartPeriod: 1, EndPeriod: 8},
	}
	p, err := NewProblem(courses, rooms, windows, rules, fixed...)
	require.NoError(t, err)
	return p
}
