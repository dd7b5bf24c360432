package scheduler

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Soft-constraint weights used by Evaluate.
const (
	WeightFacultyGaps       = 0.30
	WeightSectionGaps       = 0.25
	WeightWorkloadBalance   = 0.20
	WeightMorningPreference = 0.15
	WeightLabCompactness    = 0.10

	workloadVarianceScale = 16.0
)

// Fitness is the weighted soft-constraint score of a schedule and its parts.
// Scores only compare schedules built from the same problem.
type Fitness struct {
	Score             float64 `json:"score"`
	FacultyGaps       float64 `json:"facultyGaps"`
	SectionGaps       float64 `json:"sectionGaps"`
	WorkloadBalance   float64 `json:"workloadBalance"`
	MorningPreference float64 `json:"morningPreference"`
	LabCompactness    float64 `json:"labCompactness"`
}

// Evaluate scores a schedule. An empty schedule scores zero.
func Evaluate(rules Rules, s Schedule) Fitness {
	if len(s) == 0 {
		return Fitness{}
	}
	rules = rules.withDefaults()

	f := Fitness{
		FacultyGaps:       gapScore(rules, s, func(a Assignment) string { return a.FacultyID }),
		SectionGaps:       gapScore(rules, s, func(a Assignment) string { return a.SectionID }),
		WorkloadBalance:   workloadScore(rules, s),
		MorningPreference: morningScore(rules, s),
		LabCompactness:    labCompactnessScore(rules, s),
	}
	f.Score = WeightFacultyGaps*f.FacultyGaps +
		WeightSectionGaps*f.SectionGaps +
		WeightWorkloadBalance*f.WorkloadBalance +
		WeightMorningPreference*f.MorningPreference +
		WeightLabCompactness*f.LabCompactness
	return f
}

type dayKey struct {
	owner string
	day   int
}

// gapScore is 1 minus idle periods between the first and last occupied period
// of every (owner, day) pair, normalised by pairs x periods per day.
func gapScore(rules Rules, s Schedule, owner func(Assignment) string) float64 {
	occupied := make(map[dayKey][]bool)
	for _, a := range s {
		key := dayKey{owner: owner(a), day: a.Day}
		periods, ok := occupied[key]
		if !ok {
			periods = make([]bool, rules.PeriodsPerDay+1)
			occupied[key] = periods
		}
		for p := a.StartPeriod; p <= a.EndPeriod && p <= rules.PeriodsPerDay; p++ {
			periods[p] = true
		}
	}
	if len(occupied) == 0 {
		return 1
	}

	idle := 0
	for _, periods := range occupied {
		first, last := -1, -1
		for p := 1; p < len(periods); p++ {
			if !periods[p] {
				continue
			}
			if first < 0 {
				first = p
			}
			last = p
		}
		for p := first + 1; p < last; p++ {
			if !periods[p] {
				idle++
			}
		}
	}
	return 1 - float64(idle)/float64(len(occupied)*rules.PeriodsPerDay)
}

func workloadScore(rules Rules, s Schedule) float64 {
	loads := make(map[string][]float64)
	for _, a := range s {
		daily, ok := loads[a.FacultyID]
		if !ok {
			daily = make([]float64, rules.DaysPerWeek)
			loads[a.FacultyID] = daily
		}
		if a.Day >= 0 && a.Day < len(daily) {
			daily[a.Day] += float64(a.Slot().Length())
		}
	}
	// Sorted so the float sum does not depend on map order.
	faculty := make([]string, 0, len(loads))
	for id := range loads {
		faculty = append(faculty, id)
	}
	sort.Strings(faculty)

	variances := make([]float64, 0, len(loads))
	for _, id := range faculty {
		variances = append(variances, stat.PopVariance(loads[id], nil))
	}
	return math.Max(0, 1-stat.Mean(variances, nil)/workloadVarianceScale)
}

func morningScore(rules Rules, s Schedule) float64 {
	morningEnd := rules.MorningEnd()
	total, morning := 0, 0
	for _, a := range s {
		for p := a.StartPeriod; p <= a.EndPeriod; p++ {
			total++
			if p <= morningEnd {
				morning++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(morning) / float64(total)
}

// labCompactnessScore rewards labs early in the week; no labs scores 1.
func labCompactnessScore(rules Rules, s Schedule) float64 {
	lastDay := float64(rules.LastDay())
	if lastDay <= 0 {
		return 1
	}
	sum, labs := 0.0, 0
	for _, a := range s {
		if a.Kind != KindLab {
			continue
		}
		sum += (lastDay - float64(a.Day)) / lastDay
		labs++
	}
	if labs == 0 {
		return 1
	}
	return sum / float64(labs)
}
