package scheduler

import "fmt"

// Weekly grid defaults. Days are zero based (0 = Monday), periods are one based.
const (
	DefaultDaysPerWeek   = 6
	DefaultPeriodsPerDay = 8
	DefaultLabPeriods    = 4
)

// SessionKind distinguishes lectures from multi-period lab blocks.
type SessionKind string

const (
	KindLecture SessionKind = "lecture"
	KindLab     SessionKind = "lab"
)

// Valid reports whether the kind is one of the supported values.
func (k SessionKind) Valid() bool {
	return k == KindLecture || k == KindLab
}

// Rules captures the grid dimensions and placement policy for a run.
type Rules struct {
	DaysPerWeek   int `json:"daysPerWeek" yaml:"daysPerWeek"`
	PeriodsPerDay int `json:"periodsPerDay" yaml:"periodsPerDay"`
	LabPeriods    int `json:"labPeriods" yaml:"labPeriods"`
	// MinCapacityPercent, when > 0, requires capacity*percent >= students*100.
	MinCapacityPercent int `json:"minCapacityPercent" yaml:"minCapacityPercent"`
	// MaxPeriodsPerSectionPerDay caps the periods one section spends in class
	// on a single day, fixed assignments included. Zero means no cap.
	MaxPeriodsPerSectionPerDay int `json:"maxPeriodsPerSectionPerDay" yaml:"maxPeriodsPerSectionPerDay"`
}

// DefaultRules returns the 6 day, 8 period grid with 4 period labs.
func DefaultRules() Rules {
	return Rules{
		DaysPerWeek:   DefaultDaysPerWeek,
		PeriodsPerDay: DefaultPeriodsPerDay,
		LabPeriods:    DefaultLabPeriods,
	}
}

func (r Rules) withDefaults() Rules {
	if r.DaysPerWeek <= 0 {
		r.DaysPerWeek = DefaultDaysPerWeek
	}
	if r.PeriodsPerDay <= 0 {
		r.PeriodsPerDay = DefaultPeriodsPerDay
	}
	if r.LabPeriods <= 0 {
		r.LabPeriods = DefaultLabPeriods
	}
	return r
}

// RequiredCapacity is the smallest room capacity that may host the given
// number of students under MinCapacityPercent.
func (r Rules) RequiredCapacity(students int) int {
	if r.MinCapacityPercent <= 0 {
		return students
	}
	return max(students, (students*100+r.MinCapacityPercent-1)/r.MinCapacityPercent)
}

// LastDay is the half day at the end of the week.
func (r Rules) LastDay() int {
	return r.DaysPerWeek - 1
}

// MorningEnd is the last period before the break.
func (r Rules) MorningEnd() int {
	return r.PeriodsPerDay / 2
}

// DayCeiling is the last period a relocation may use on the given day.
func (r Rules) DayCeiling(day int) int {
	if day == r.LastDay() {
		return r.MorningEnd()
	}
	return r.PeriodsPerDay
}

// TimeSlot is an inclusive period range on one day.
type TimeSlot struct {
	Day         int `json:"day"`
	StartPeriod int `json:"startPeriod"`
	EndPeriod   int `json:"endPeriod"`
}

// Length returns the number of periods covered.
func (t TimeSlot) Length() int {
	return t.EndPeriod - t.StartPeriod + 1
}

// Overlaps reports whether both slots share a day and at least one period.
func (t TimeSlot) Overlaps(other TimeSlot) bool {
	return t.Day == other.Day && t.StartPeriod <= other.EndPeriod && other.StartPeriod <= t.EndPeriod
}

// StraddlesBreak reports whether the range crosses the break after morningEnd.
func (t TimeSlot) StraddlesBreak(morningEnd int) bool {
	return t.StartPeriod <= morningEnd && t.EndPeriod > morningEnd
}

// Afternoon reports whether any period falls after the break.
func (t TimeSlot) Afternoon(morningEnd int) bool {
	return t.EndPeriod > morningEnd
}

func (t TimeSlot) String() string {
	return fmt.Sprintf("day %d P%d-P%d", t.Day, t.StartPeriod, t.EndPeriod)
}
