package scheduler

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"
)

// Config tunes the population search.
type Config struct {
	PopulationSize   int
	Generations      int
	EliteRatio       float64
	TournamentSize   int
	CrossoverRate    float64
	MutationRate     float64
	MutationAttempts int
	PerturbRatio     float64
	// Workers bounds parallel fitness evaluation; 1 evaluates sequentially.
	Workers int
	// Seed drives the run's random stream. Zero picks a time based seed.
	Seed int64
}

// DefaultConfig returns the standard search parameters.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   50,
		Generations:      100,
		EliteRatio:       0.1,
		TournamentSize:   5,
		CrossoverRate:    0.8,
		MutationRate:     0.1,
		MutationAttempts: 10,
		PerturbRatio:     0.1,
		Workers:          1,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PopulationSize <= 0 {
		c.PopulationSize = def.PopulationSize
	}
	if c.Generations <= 0 {
		c.Generations = def.Generations
	}
	if c.EliteRatio < 0 || c.EliteRatio > 1 {
		c.EliteRatio = def.EliteRatio
	}
	if c.TournamentSize <= 0 {
		c.TournamentSize = def.TournamentSize
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		c.CrossoverRate = def.CrossoverRate
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		c.MutationRate = def.MutationRate
	}
	if c.MutationAttempts <= 0 {
		c.MutationAttempts = def.MutationAttempts
	}
	if c.PerturbRatio < 0 {
		c.PerturbRatio = def.PerturbRatio
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	return c
}

// OptimizeResult is the best schedule seen during a run.
type OptimizeResult struct {
	Best        Schedule
	Fitness     Fitness
	History     []float64
	Generations int
	Seed        int64
}

// Optimizer owns the population and random stream of one run. It is not safe
// for concurrent use; create one per job.
type Optimizer struct {
	problem *Problem
	cfg     Config
	seed    int64
	rng     *rand.Rand
}

// NewOptimizer builds an optimizer for schedules of p.
func NewOptimizer(p *Problem, cfg Config) *Optimizer {
	cfg = cfg.withDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Optimizer{
		problem: p,
		cfg:     cfg,
		seed:    seed,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed driving this optimizer.
func (o *Optimizer) Seed() int64 { return o.seed }

// Optimize evolves a population seeded from base for a fixed number of
// generations and returns the best schedule observed. The result always has
// as many assignments as base.
func (o *Optimizer) Optimize(base Schedule, progress ProgressFunc) OptimizeResult {
	if len(base) == 0 {
		return OptimizeResult{Best: Schedule{}, Seed: o.seed}
	}

	population := o.initialPopulation(base)
	fitness := o.evaluate(population)

	bestIdx := argmax(fitness)
	best := population[bestIdx].Clone()
	bestFit := fitness[bestIdx]
	history := make([]float64, 0, o.cfg.Generations)

	for gen := 0; gen < o.cfg.Generations; gen++ {
		population = o.nextGeneration(population, fitness)
		fitness = o.evaluate(population)

		if i := argmax(fitness); fitness[i].Score > bestFit.Score {
			best = population[i].Clone()
			bestFit = fitness[i]
		}
		history = append(history, bestFit.Score)

		if progress != nil {
			progress((gen+1)*100/o.cfg.Generations, fmt.Sprintf("generation %d/%d best %.4f", gen+1, o.cfg.Generations, bestFit.Score))
		}
	}

	return OptimizeResult{
		Best:        best,
		Fitness:     bestFit,
		History:     history,
		Generations: o.cfg.Generations,
		Seed:        o.seed,
	}
}

func (o *Optimizer) initialPopulation(base Schedule) []Schedule {
	relocations := max(1, int(o.cfg.PerturbRatio*float64(len(base))))
	population := make([]Schedule, o.cfg.PopulationSize)
	population[0] = base.Clone()
	for i := 1; i < len(population); i++ {
		member := base.Clone()
		for r := 0; r < relocations; r++ {
			o.Mutate(member)
		}
		population[i] = member
	}
	return population
}

func (o *Optimizer) nextGeneration(population []Schedule, fitness []Fitness) []Schedule {
	next := make([]Schedule, 0, len(population))
	for _, i := range rank(fitness)[:o.eliteCount(len(population))] {
		next = append(next, population[i].Clone())
	}
	for len(next) < len(population) {
		parent1 := population[o.tournament(fitness)]
		parent2 := population[o.tournament(fitness)]

		var child Schedule
		if o.rng.Float64() < o.cfg.CrossoverRate {
			child = o.Crossover(parent1, parent2)
		} else {
			child = parent1.Clone()
		}
		if o.rng.Float64() < o.cfg.MutationRate {
			o.Mutate(child)
		}
		next = append(next, child)
	}
	return next
}

func (o *Optimizer) eliteCount(size int) int {
	n := int(float64(size) * o.cfg.EliteRatio)
	if n < 1 && o.cfg.EliteRatio > 0 {
		n = 1
	}
	return min(n, size)
}

// evaluate scores every member. Results are stored by index so parallel
// evaluation does not change the outcome.
func (o *Optimizer) evaluate(population []Schedule) []Fitness {
	rules := o.problem.rules
	fitness := make([]Fitness, len(population))
	if o.cfg.Workers <= 1 {
		for i, member := range population {
			fitness[i] = Evaluate(rules, member)
		}
		return fitness
	}

	var g errgroup.Group
	g.SetLimit(o.cfg.Workers)
	for i, member := range population {
		g.Go(func() error {
			fitness[i] = Evaluate(rules, member)
			return nil
		})
	}
	_ = g.Wait()
	return fitness
}

// rank orders member indexes by descending score; ties keep population order.
func rank(fitness []Fitness) []int {
	order := make([]int, len(fitness))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return fitness[order[a]].Score > fitness[order[b]].Score
	})
	return order
}

func argmax(fitness []Fitness) int {
	best := 0
	for i := 1; i < len(fitness); i++ {
		if fitness[i].Score > fitness[best].Score {
			best = i
		}
	}
	return best
}
