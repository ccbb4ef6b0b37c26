package sim

import (
	"math"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/track"
)

// RayFan casts a fixed fan of rays from an agent pose against walls and
// obstacles and turns the hit distances into the brain's observation
// vector. Ray offsets are fixed at construction; origins and headings are
// refreshed from the agent pose on every cast.
type RayFan struct {
	offsets           []float64 // base angle offsets relative to heading
	rng               float64   // maximum ray length
	lethalProximity   float64
	obstacleTolerance float64
}

// Reading is one tick's sensor output for one agent.
type Reading struct {
	// Inputs holds one value per ray: 1 at zero distance falling linearly
	// to 0 at sensor range (or nothing detected).
	Inputs []float64
	// MinDistance is the closest hit across all rays, defaulting to the
	// sensor range when nothing was hit.
	MinDistance float64
	// Lethal is set when any ray reports a hit inside the lethal
	// proximity threshold; the agent dies this tick.
	Lethal bool
}

// NewRayFan builds the control fan from configuration.
func NewRayFan(sc config.SensorsConfig) *RayFan {
	return &RayFan{
		offsets:           fanOffsets(sc.NumRays, sc.Spread),
		rng:               sc.Range,
		lethalProximity:   sc.LethalProximity,
		obstacleTolerance: sc.ObstacleTolerance,
	}
}

// fanOffsets spreads n ray offsets evenly across [-spread/2, spread/2].
func fanOffsets(n int, spread float64) []float64 {
	offsets := make([]float64, n)
	if n == 1 {
		return offsets
	}
	for i := range offsets {
		offsets[i] = -spread/2 + spread*float64(i)/float64(n-1)
	}
	return offsets
}

// Sense casts the fan for the given pose. The observation vector is written
// into out, which must have one slot per ray.
func (f *RayFan) Sense(pos geom.Vec2, heading float64, trk *track.Track, out []float64) Reading {
	walls := trk.Walls()
	obstacles := trk.ObstaclePositions()

	minDist := f.rng
	for i, offset := range f.offsets {
		record := f.castRay(pos, heading+offset, f.rng, f.obstacleTolerance, walls, obstacles)
		out[i] = 1 - record/f.rng
		if record < minDist {
			minDist = record
		}
	}

	return Reading{
		Inputs:      out,
		MinDistance: minDist,
		Lethal:      minDist < f.lethalProximity,
	}
}

// castRay returns the nearest hit distance along one ray, or rng when
// nothing is hit.
func (f *RayFan) castRay(pos geom.Vec2, angle, rng, tolerance float64, walls []geom.Segment, obstacles []geom.Vec2) float64 {
	dir := geom.FromAngle(angle, 1)
	record := rng

	if idx := geom.ClosestPointOnRay(pos, dir, rng, obstacles, tolerance); idx >= 0 {
		record = pos.Dist(obstacles[idx])
	}
	for _, w := range walls {
		if hit, ok := geom.IntersectRaySegment(pos, dir, rng, w.A, w.B); ok {
			if d := pos.Dist(hit); d < record {
				record = d
			}
		}
	}
	return record
}

// HitKind tags what a render ray hit.
type HitKind uint8

const (
	HitNone HitKind = iota
	HitWall
	HitObstacle
)

// RenderRay is one ray of the high-resolution render fan.
type RenderRay struct {
	Distance float64
	Hit      HitKind
}

// RenderFan casts a denser, full-scene-distance fan for the rendering
// collaborator. It shares the control fan's primitives but its output is
// never fed back into control.
func RenderFan(pos geom.Vec2, heading float64, trk *track.Track, count int) []RenderRay {
	offsets := fanOffsets(count, 2*math.Pi)
	walls := trk.Walls()
	obstacles := trk.ObstaclePositions()
	sceneRange := trk.Diagonal()
	// Tighter tolerance than the control fan: render rays resolve
	// obstacle edges, not coarse presence.
	const renderTolerance = 2.0

	rays := make([]RenderRay, count)
	for i, offset := range offsets {
		dir := geom.FromAngle(heading+offset, 1)

		record := sceneRange
		hit := HitNone
		if idx := geom.ClosestPointOnRay(pos, dir, sceneRange, obstacles, renderTolerance); idx >= 0 {
			record = pos.Dist(obstacles[idx])
			hit = HitObstacle
		}
		for _, w := range walls {
			if p, ok := geom.IntersectRaySegment(pos, dir, sceneRange, w.A, w.B); ok {
				if d := pos.Dist(p); d < record {
					record = d
					hit = HitWall
				}
			}
		}
		rays[i] = RenderRay{Distance: record, Hit: hit}
	}
	return rays
}
