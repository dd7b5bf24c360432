package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.PopulationSize = 12
	cfg.Generations = 20
	cfg.Seed = seed
	return cfg
}

func TestOptimizeKeepsScheduleValid(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule
	baseFitness := Evaluate(p.Rules(), base)

	result := NewOptimizer(p, smallConfig(7)).Optimize(base, nil)

	assert.Len(t, result.Best, len(base))
	assert.Empty(t, Validate(p, result.Best))
	assert.GreaterOrEqual(t, result.Fitness.Score, baseFitness.Score)
	assert.Equal(t, 20, result.Generations)
	assert.Equal(t, int64(7), result.Seed)
}

func TestOptimizeRespectsFixedAssignmentsAndDailyCap(t *testing.T) {
	p := mediumProblemWith(t, Rules{MaxPeriodsPerSectionPerDay: 5},
		FixedAssignment{SectionID: "S1", FacultyID: "FX", RoomID: "EXT", Day: 1, StartPeriod: 1, EndPeriod: 4},
		FixedAssignment{SectionID: "S2", FacultyID: "F1", RoomID: "R1", Day: 3, StartPeriod: 5, EndPeriod: 8},
	)
	base := Generate(p, nil)
	require.True(t, base.Complete(), "unplaced: %+v", base.Unplaced)
	require.Empty(t, Validate(p, base.Schedule))

	cfg := smallConfig(19)
	cfg.MutationRate = 1
	result := NewOptimizer(p, cfg).Optimize(base.Schedule, nil)

	assert.Len(t, result.Best, len(base.Schedule))
	assert.Empty(t, Validate(p, result.Best))
	for _, a := range result.Best {
		assert.NotContains(t, a.SessionID, "fixed#")
	}
	assert.Len(t, p.Fixed(), 2)
}

func TestMutateAndCrossoverAvoidFixedSlots(t *testing.T) {
	// Everything but day 0 period 1 and day 4 period 2 is held by the section's fixed slots.
	var fixed []FixedAssignment
	for day := 0; day < 6; day++ {
		for _, block := range [][2]int{{1, 4}, {5, 8}} {
			start, end := block[0], block[1]
			if day == 0 && start == 1 {
				start = 2
			}
			if day == 4 && start == 1 {
				fixed = append(fixed, FixedAssignment{SectionID: "S1", FacultyID: "FX", RoomID: "EXT", Day: day, StartPeriod: 1, EndPeriod: 1})
				start = 3
			}
			if day == 5 && start == 5 {
				continue
			}
			fixed = append(fixed, FixedAssignment{SectionID: "S1", FacultyID: "FX", RoomID: "EXT", Day: day, StartPeriod: start, EndPeriod: end})
		}
	}
	p, err := NewProblem([]CourseSession{lecture("S1", "M", "F1", 10, 2)}, []Room{{ID: "R1", Capacity: 10}}, nil, Rules{}, fixed...)
	require.NoError(t, err)

	base := Generate(p, nil).Schedule
	require.Len(t, base, 1)
	assert.Equal(t, TimeSlot{Day: 0, StartPeriod: 1, EndPeriod: 1}, base[0].Slot())

	cfg := smallConfig(23)
	cfg.MutationAttempts = 2000
	o := NewOptimizer(p, cfg)

	moved := base.Clone()
	result := o.Mutate(moved)
	require.True(t, result.Applied())
	assert.Equal(t, TimeSlot{Day: 4, StartPeriod: 2, EndPeriod: 2}, moved[0].Slot())
	assert.Empty(t, Validate(p, moved))

	bad := Schedule{base[0].moved(TimeSlot{Day: 1, StartPeriod: 1, EndPeriod: 1})}
	child := o.Crossover(base, bad)
	assert.Equal(t, base, child)
}

func TestOptimizeBestIsNonDecreasing(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule

	result := NewOptimizer(p, smallConfig(11)).Optimize(base, nil)

	require.Len(t, result.History, 20)
	for i := 1; i < len(result.History); i++ {
		assert.GreaterOrEqual(t, result.History[i], result.History[i-1])
	}
	assert.Equal(t, result.Fitness.Score, result.History[len(result.History)-1])
}

func TestOptimizeIsDeterministicForSeed(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule

	first := NewOptimizer(p, smallConfig(42)).Optimize(base, nil)
	second := NewOptimizer(p, smallConfig(42)).Optimize(base, nil)

	assert.Equal(t, first.Best, second.Best)
	assert.Equal(t, first.Fitness, second.Fitness)
	assert.Equal(t, first.History, second.History)
}

func TestOptimizeParallelEvaluationMatchesSequential(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule

	sequential := NewOptimizer(p, smallConfig(5)).Optimize(base, nil)

	cfg := smallConfig(5)
	cfg.Workers = 4
	parallel := NewOptimizer(p, cfg).Optimize(base, nil)

	assert.Equal(t, sequential.Best, parallel.Best)
	assert.Equal(t, sequential.Fitness, parallel.Fitness)
}

func TestOptimizeDoesNotMutateBase(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule
	snapshot := base.Clone()

	NewOptimizer(p, smallConfig(3)).Optimize(base, nil)

	assert.Equal(t, snapshot, base)
}

func TestOptimizeEmptyBase(t *testing.T) {
	p := mediumProblem(t)

	calls := 0
	result := NewOptimizer(p, smallConfig(1)).Optimize(Schedule{}, func(int, string) { calls++ })

	assert.Empty(t, result.Best)
	assert.NotNil(t, result.Best)
	assert.Equal(t, 0.0, result.Fitness.Score)
	assert.Zero(t, calls)
}

func TestOptimizeReportsProgressPerGeneration(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule

	var percents []int
	NewOptimizer(p, smallConfig(9)).Optimize(base, func(percent int, _ string) {
		percents = append(percents, percent)
	})

	require.Len(t, percents, 20)
	assert.Equal(t, 5, percents[0])
	assert.Equal(t, 100, percents[len(percents)-1])
}

func TestNewOptimizerPicksSeedWhenZero(t *testing.T) {
	p := mediumProblem(t)
	o := NewOptimizer(p, Config{})
	assert.NotZero(t, o.Seed())
	assert.Equal(t, DefaultConfig().PopulationSize, o.cfg.PopulationSize)
	assert.Equal(t, DefaultConfig().Generations, o.cfg.Generations)
}

func TestMutateExhaustsAttempts(t *testing.T) {
	// The only window is the slot already used, so every proposal is rejected.
	p := mustProblem(t,
		[]CourseSession{{ID: "a", SectionID: "S1", SubjectID: "M", FacultyID: "F1", StudentCount: 10, YearLevel: 1}},
		[]Room{{ID: "R1", Capacity: 10}},
		[]AvailabilityWindow{{FacultyID: "F1", Day: 0, StartPeriod: 1, EndPeriod: 1}},
		Rules{},
	)
	s := Generate(p, nil).Schedule
	require.Len(t, s, 1)
	before := s.Clone()

	o := NewOptimizer(p, smallConfig(1))
	result := o.Mutate(s)

	assert.Equal(t, MutationUnchanged, result.Outcome)
	assert.False(t, result.Applied())
	assert.Equal(t, 0, result.Index)
	assert.Equal(t, 10, result.Attempts)
	assert.Equal(t, before, s)
}

func TestMutateAppliesRelocation(t *testing.T) {
	p := mustProblem(t,
		[]CourseSession{{ID: "a", SectionID: "S1", SubjectID: "M", FacultyID: "F1", StudentCount: 10, YearLevel: 1}},
		[]Room{{ID: "R1", Capacity: 10}},
		nil,
		Rules{},
	)
	s := Generate(p, nil).Schedule
	before := s[0].Slot()

	result := NewOptimizer(p, smallConfig(1)).Mutate(s)

	assert.Equal(t, MutationApplied, result.Outcome)
	assert.NotEqual(t, before, s[0].Slot())
	assert.Equal(t, "R1", s[0].RoomID)
	assert.Empty(t, Validate(p, s))
}

func TestMutateEmptySchedule(t *testing.T) {
	p := mediumProblem(t)
	result := NewOptimizer(p, smallConfig(1)).Mutate(Schedule{})
	assert.Equal(t, MutationUnchanged, result.Outcome)
	assert.Equal(t, -1, result.Index)
}

func TestCrossoverProducesValidOffspring(t *testing.T) {
	p := mediumProblem(t)
	base := Generate(p, nil).Schedule
	o := NewOptimizer(p, smallConfig(21))

	other := base.Clone()
	for i := 0; i < 10; i++ {
		o.Mutate(other)
	}
	require.Empty(t, Validate(p, other))

	for i := 0; i < 20; i++ {
		child := o.Crossover(base, other)
		assert.Len(t, child, len(base))
		assert.Empty(t, Validate(p, child))
	}
}
