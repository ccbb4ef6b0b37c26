// Package sim couples the sensor engine, the neural controllers and the
// genetic algorithm into a tick-stepped simulation. All state lives on the
// Simulation struct owned by the driver; there are no package-level
// simulation globals.
package sim

import (
	"math"
	"math/rand"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/track"
)

// Simulation holds the complete simulation state: the live generation as
// ECS entities, their brains, and the terminated pool awaiting evaluation.
// Every agent belongs to exactly one of live/terminated at any time.
type Simulation struct {
	world *ecs.World
	rng   *rand.Rand
	cfg   *config.Config

	agentMapper *ecs.Map6[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Rotation,
		components.Progress,
		components.AgentMeta,
	]
	agentFilter *ecs.Filter6[
		components.Position,
		components.Velocity,
		components.Acceleration,
		components.Rotation,
		components.Progress,
		components.AgentMeta,
	]

	// Brain storage (per agent by ID); a brain here is owned by exactly
	// one live agent.
	brains map[uint32]*neural.Brain
	nextID uint32

	trk *track.Track
	fan *RayFan
	obs []float64 // scratch observation buffer reused across agents

	tick        int64
	genStart    int64 // tick at which the current generation began
	generation  int
	presetIndex int
	bestLaps    int // all-time best laps across generations
	liveCount   int

	terminated []terminatedAgent

	onAdvance func(AdvanceResult) // synchronous stats hook
	sink      GenerationSink      // async persistence hook
}

// New creates a simulation on the given track. The population is not
// spawned yet; call SpawnPopulation (after Restore, if resuming).
func New(cfg *config.Config, trk *track.Track, presetIndex int, seed int64) *Simulation {
	world := ecs.NewWorld()

	s := &Simulation{
		world:       world,
		rng:         rand.New(rand.NewSource(seed)),
		cfg:         cfg,
		trk:         trk,
		fan:         NewRayFan(cfg.Sensors),
		obs:         make([]float64, cfg.Derived.NumInputs),
		presetIndex: presetIndex,
		brains:      make(map[uint32]*neural.Brain),
		agentMapper: ecs.NewMap6[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Rotation,
			components.Progress,
			components.AgentMeta,
		](world),
		agentFilter: ecs.NewFilter6[
			components.Position,
			components.Velocity,
			components.Acceleration,
			components.Rotation,
			components.Progress,
			components.AgentMeta,
		](world),
	}

	return s
}

// Restore seeds counters from persisted state before the first spawn.
func (s *Simulation) Restore(generation, bestLaps int) {
	s.generation = generation
	s.bestLaps = bestLaps
}

// SpawnPopulation creates the initial generation. With a nil seed brain
// every agent gets a fresh random brain; with a seed brain the first agent
// receives it unmutated and the remaining slots receive mutated clones.
// The seed brain is consumed: the simulation takes ownership.
func (s *Simulation) SpawnPopulation(seed *neural.Brain) {
	size := s.cfg.Population.Size
	for i := 0; i < size; i++ {
		var brain *neural.Brain
		switch {
		case seed == nil:
			brain = s.newRandomBrain()
		case i == 0:
			brain = seed
		default:
			brain = seed.Clone()
			brain.Mutate(s.rng, s.cfg.Population.MutationRate)
		}
		s.spawnAgent(brain)
	}
	if seed != nil && size == 0 {
		seed.Close()
	}
}

// newRandomBrain builds a brain with the configured topology.
func (s *Simulation) newRandomBrain() *neural.Brain {
	return neural.NewRandomBrain(s.rng, s.cfg.Derived.NumInputs, s.cfg.Neural.NumHidden, s.cfg.Neural.NumOutputs)
}

// spawnAgent creates a live agent at the start pose, taking ownership of
// the brain.
func (s *Simulation) spawnAgent(brain *neural.Brain) ecs.Entity {
	id := s.nextID
	s.nextID++
	s.brains[id] = brain

	pos := components.Position{X: s.trk.Start.Position.X, Y: s.trk.Start.Position.Y}
	vel := components.Velocity{}
	acc := components.Acceleration{}
	rot := components.Rotation{Heading: s.trk.Start.Heading}
	prog := components.Progress{CheckpointIndex: 1} // checkpoint 0 is the start line
	meta := components.AgentMeta{ID: id, State: components.StateAlive}

	entity := s.agentMapper.NewEntity(&pos, &vel, &acc, &rot, &prog, &meta)
	s.liveCount++
	return entity
}

// Step runs a single simulation tick: obstacle motion first, then every
// live agent's control step in entity order, then terminal-state
// collection, and a generation advance once no live agents remain.
func (s *Simulation) Step() {
	// Obstacles move once, before any agent senses; all agents within a
	// tick observe the same obstacle positions.
	s.trk.UpdateObstacles()

	threshold := s.cfg.Population.FitnessThreshold
	thresholdHit := false

	query := s.agentFilter.Query()
	for query.Next() {
		pos, vel, acc, rot, prog, meta := query.Get()
		if meta.State != components.StateAlive {
			continue
		}
		s.controlStep(pos, vel, acc, rot, prog, meta)
		if threshold > 0 && prog.RawFitness >= threshold {
			thresholdHit = true
		}
	}

	if thresholdHit {
		s.finishLive()
	}
	s.collectTerminal()

	if s.liveCount == 0 {
		s.advanceGeneration()
	}

	s.tick++
}

// controlStep executes one Alive-state step: sense, decide, steer,
// integrate, lifecycle checks. Terminal agents never reach here.
func (s *Simulation) controlStep(
	pos *components.Position,
	vel *components.Velocity,
	acc *components.Acceleration,
	rot *components.Rotation,
	prog *components.Progress,
	meta *components.AgentMeta,
) {
	ac := s.cfg.Agent

	// 1. Sense
	p := geom.Vec2{X: pos.X, Y: pos.Y}
	reading := s.fan.Sense(p, rot.Heading, s.trk, s.obs)

	// 2. Decide
	out := s.brains[meta.ID].Predict(reading.Inputs)

	// 3. Steer: out[0] -> angle offset in [-pi, pi], out[1] -> target speed
	angle := rot.Heading + (out[0]*2-1)*math.Pi
	desired := geom.FromAngle(angle, out[1]*ac.MaxSpeed)
	steer := desired.Sub(geom.Vec2{X: vel.X, Y: vel.Y}).Limit(ac.MaxForce)
	acc.X += steer.X
	acc.Y += steer.Y

	// 4. Integrate
	vel.X += acc.X
	vel.Y += acc.Y
	v := geom.Vec2{X: vel.X, Y: vel.Y}.Limit(ac.MaxSpeed)
	vel.X, vel.Y = v.X, v.Y
	pos.X += vel.X
	pos.Y += vel.Y
	acc.X, acc.Y = 0, 0
	if v.Len() > 1e-9 {
		rot.Heading = math.Atan2(v.Y, v.X)
	}

	// 5. Lifecycle checks, in order
	prog.FramesSinceProgress++
	p = geom.Vec2{X: pos.X, Y: pos.Y}

	if reading.Lethal {
		meta.State = components.StateDead
		return
	}
	if !s.trk.Contains(p) {
		meta.State = components.StateDead
		return
	}
	if prog.FramesSinceProgress > ac.Lifespan {
		meta.State = components.StateDead
		return
	}

	cp := s.trk.Checkpoints[prog.CheckpointIndex]
	if geom.DistancePointToLine(p, cp.A, cp.B) < ac.CaptureRadius {
		prog.CheckpointIndex = (prog.CheckpointIndex + 1) % len(s.trk.Checkpoints)
		prog.RawFitness++
		prog.FramesSinceProgress = 0
		if prog.CheckpointIndex == 0 {
			prog.Laps++
			if prog.Laps > s.bestLaps {
				s.bestLaps = prog.Laps
			}
		}
	}
}

// finishLive marks every still-live agent Finished (fitness threshold hit).
func (s *Simulation) finishLive() {
	query := s.agentFilter.Query()
	for query.Next() {
		_, _, _, _, _, meta := query.Get()
		if meta.State == components.StateAlive {
			meta.State = components.StateFinished
		}
	}
}

// collectTerminal folds Dead/Finished agents into the terminated pool.
// Two passes: queries must complete before entities are removed.
func (s *Simulation) collectTerminal() {
	type deadInfo struct {
		entity ecs.Entity
		id     uint32
		raw    int
		laps   int
	}
	var toRemove []deadInfo

	query := s.agentFilter.Query()
	for query.Next() {
		entity := query.Entity()
		_, _, _, _, prog, meta := query.Get()
		if meta.State == components.StateAlive {
			continue
		}
		toRemove = append(toRemove, deadInfo{entity: entity, id: meta.ID, raw: prog.RawFitness, laps: prog.Laps})
	}

	for _, dead := range toRemove {
		s.agentMapper.Remove(dead.entity)
		brain := s.brains[dead.id]
		delete(s.brains, dead.id)
		s.liveCount--

		s.terminated = append(s.terminated, terminatedAgent{
			id:    dead.id,
			raw:   dead.raw,
			laps:  dead.laps,
			brain: brain,
		})
	}
}

// Tick returns the current simulation tick.
func (s *Simulation) Tick() int64 { return s.tick }

// Generation returns the current generation index.
func (s *Simulation) Generation() int { return s.generation }

// PresetIndex returns the track preset the simulation runs on.
func (s *Simulation) PresetIndex() int { return s.presetIndex }

// BestLaps returns the all-time best lap count.
func (s *Simulation) BestLaps() int { return s.bestLaps }

// LiveCount returns the number of live agents.
func (s *Simulation) LiveCount() int { return s.liveCount }

// TerminatedCount returns the size of the pending terminated pool.
func (s *Simulation) TerminatedCount() int { return len(s.terminated) }
