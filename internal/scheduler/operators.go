package scheduler

// MutationOutcome tells whether a relocation was committed.
type MutationOutcome string

const (
	MutationApplied   MutationOutcome = "applied"
	MutationUnchanged MutationOutcome = "unchanged"
)

// MutationResult reports one bounded relocation attempt.
type MutationResult struct {
	Outcome  MutationOutcome
	Index    int
	Attempts int
}

// Applied reports whether the schedule was modified.
func (r MutationResult) Applied() bool {
	return r.Outcome == MutationApplied
}

// Mutate relocates one random assignment of s in place. Fixed assignments are
// not part of s and never move. Each attempt proposes
// a random day and start that keep the block length, the day ceiling and the
// break. The first proposal that keeps s valid is committed; after
// MutationAttempts failures s is left untouched.
func (o *Optimizer) Mutate(s Schedule) MutationResult {
	if len(s) == 0 {
		return MutationResult{Outcome: MutationUnchanged, Index: -1}
	}
	rules := o.problem.rules
	idx := o.rng.Intn(len(s))
	current := s[idx]
	length := current.Slot().Length()
	session, known := o.problem.Session(current.SessionID)

	result := MutationResult{Outcome: MutationUnchanged, Index: idx}
	for result.Attempts < o.cfg.MutationAttempts {
		result.Attempts++

		day := o.rng.Intn(rules.DaysPerWeek)
		ceiling := rules.DayCeiling(day)
		if length > ceiling {
			continue
		}
		start := o.rng.Intn(ceiling-length+1) + 1
		slot := TimeSlot{Day: day, StartPeriod: start, EndPeriod: start + length - 1}
		if slot == current.Slot() || slot.StraddlesBreak(rules.MorningEnd()) {
			continue
		}
		if !known || !o.problem.SaturdayRuleOK(session, slot) || !o.problem.FacultyAvailable(current.FacultyID, slot) {
			continue
		}
		candidate := current.moved(slot)
		if !o.problem.noConflictExcept(s, candidate, idx) {
			continue
		}
		s[idx] = candidate
		result.Outcome = MutationApplied
		return result
	}
	return result
}

// Crossover builds one offspring from two parents. The offspring starts as a
// copy of parent1; from a random cut onwards each position adopts parent2's
// assignment for the same session when that keeps the offspring clash free.
func (o *Optimizer) Crossover(parent1, parent2 Schedule) Schedule {
	offspring := parent1.Clone()
	if len(offspring) == 0 {
		return offspring
	}

	bySession := make(map[string]int, len(parent2))
	for i, a := range parent2 {
		bySession[a.SessionID] = i
	}

	cut := o.rng.Intn(len(offspring))
	for j := cut; j < len(offspring); j++ {
		k, ok := bySession[offspring[j].SessionID]
		if !ok {
			continue
		}
		candidate := parent2[k]
		if candidate == offspring[j] {
			continue
		}
		if o.problem.noConflictExcept(offspring, candidate, j) {
			offspring[j] = candidate
		}
	}

	if Overlapping(offspring) {
		return parent1.Clone()
	}
	return offspring
}

// tournament returns the index of the best of TournamentSize uniform draws
// with replacement.
func (o *Optimizer) tournament(fitness []Fitness) int {
	best := o.rng.Intn(len(fitness))
	for i := 1; i < o.cfg.TournamentSize; i++ {
		challenger := o.rng.Intn(len(fitness))
		if fitness[challenger].Score > fitness[best].Score {
			best = challenger
		}
	}
	return best
}
