package sim

import (
	"math"
	"sort"

	"github.com/pthm-cable/circuit/neural"
)

// terminatedAgent is one evaluated agent awaiting generation-advance.
// fitness starts as the shaped value and becomes the normalized selection
// probability; raw is never overwritten.
type terminatedAgent struct {
	id      uint32
	raw     int
	laps    int
	fitness float64
	brain   *neural.Brain
}

// Outcome tags how a generation advance completed. The random fallback is
// a first-class branch, not an error path.
type Outcome uint8

const (
	// Advanced means the new generation was bred from the terminated pool.
	Advanced Outcome = iota
	// FellBackToRandom means the pool was empty and the population was
	// rebuilt from random brains.
	FellBackToRandom
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == FellBackToRandom {
		return "fell_back_to_random"
	}
	return "advanced"
}

// AdvanceResult summarizes one generation advance.
type AdvanceResult struct {
	Outcome       Outcome
	Generation    int // new generation index
	PoolSize      int
	BestRaw       int
	MeanRaw       float64
	BestLaps      int
	DurationTicks int64
	Elites        int
	Offspring     int
	Randoms       int
}

// advanceGeneration consumes the terminated pool and produces the next
// live generation: shaping + normalization, elitism, roulette-wheel
// offspring, then release of every pool brain.
func (s *Simulation) advanceGeneration() {
	pool := s.terminated
	s.terminated = nil
	size := s.cfg.Population.Size

	result := AdvanceResult{
		PoolSize:      len(pool),
		DurationTicks: s.tick - s.genStart + 1,
	}

	if len(pool) == 0 {
		// Should not occur given the state machine; regenerate from
		// random brains rather than fail.
		for i := 0; i < size; i++ {
			s.spawnAgent(s.newRandomBrain())
		}
		result.Outcome = FellBackToRandom
		result.Randoms = size
		s.finishAdvance(result, nil)
		return
	}

	shapeAndNormalize(pool)
	sort.Slice(pool, func(i, j int) bool {
		return pool[i].fitness > pool[j].fitness
	})

	var rawSum int
	for _, a := range pool {
		rawSum += a.raw
	}
	result.Outcome = Advanced
	result.BestRaw = pool[0].raw
	result.MeanRaw = float64(rawSum) / float64(len(pool))

	// Elitism: the top k brains carry over as unmutated clones.
	elites := s.cfg.Population.Elites
	if elites > len(pool) {
		elites = len(pool)
	}
	if elites > size {
		elites = size
	}
	for i := 0; i < elites; i++ {
		s.spawnAgent(pool[i].brain.Clone())
	}

	// Remaining slots: fitness-proportionate parents, mutated clones.
	for i := elites; i < size; i++ {
		donor := pool[rouletteIndex(pool, s.rng.Float64())]
		child := donor.brain.Clone()
		child.Mutate(s.rng, s.cfg.Population.MutationRate)
		s.spawnAgent(child)
	}
	result.Elites = elites
	result.Offspring = size - elites

	// The persistence event needs the best brain past the release below.
	var best *neural.Brain
	if s.sink != nil {
		best = pool[0].brain.Clone()
	}

	for i := range pool {
		pool[i].brain.Close()
		pool[i].brain = nil
	}

	s.finishAdvance(result, best)
}

// finishAdvance bumps the generation counter and fires the hooks. The best
// brain clone, when present, is handed to the async sink which closes it
// once the persistence call completes.
func (s *Simulation) finishAdvance(result AdvanceResult, best *neural.Brain) {
	s.generation++
	s.genStart = s.tick + 1

	result.Generation = s.generation
	result.BestLaps = s.bestLaps

	if s.onAdvance != nil {
		s.onAdvance(result)
	}
	if best != nil {
		s.emitGeneration(best)
	}
}

// shapeAndNormalize applies the two fitness phases to the pool: raw
// checkpoint counts shape to 2^raw, then the shaped values normalize to
// selection probabilities summing to 1. A non-positive shaped sum (cannot
// occur with 2^raw, guarded anyway) falls back to uniform probabilities.
func shapeAndNormalize(pool []terminatedAgent) {
	var sum float64
	for i := range pool {
		pool[i].fitness = math.Pow(2, float64(pool[i].raw))
		sum += pool[i].fitness
	}
	if sum <= 0 {
		uniform := 1 / float64(len(pool))
		for i := range pool {
			pool[i].fitness = uniform
		}
		return
	}
	for i := range pool {
		pool[i].fitness /= sum
	}
}

// rouletteIndex walks the pool subtracting each agent's selection
// probability from r until it goes non-positive. The pool must be
// normalized. Floating residue falls through to the last agent.
func rouletteIndex(pool []terminatedAgent, r float64) int {
	for i := range pool {
		r -= pool[i].fitness
		if r <= 0 {
			return i
		}
	}
	return len(pool) - 1
}
