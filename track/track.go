// Package track models the closed course the agents race around: two
// boundary polylines, an ordered checkpoint sequence, drifting obstacles
// and a start pose. Tracks are generated deterministically from a preset
// index; the simulation treats a built track as read-only within a tick
// except for obstacle motion, which UpdateObstacles applies exactly once
// per tick.
package track

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
)

// Obstacle is a mobile hazard that drifts back and forth along a fixed
// segment across the corridor.
type Obstacle struct {
	Pos geom.Vec2

	a, b geom.Vec2 // drift endpoints
	t    float64   // parameter along a..b
	dt   float64   // parameter step per tick (sign flips at the ends)
}

// Pose is a position plus heading.
type Pose struct {
	Position geom.Vec2
	Heading  float64
}

// Track holds the full course geometry.
type Track struct {
	Outer       []geom.Segment
	Inner       []geom.Segment
	Checkpoints []geom.Segment
	Obstacles   []*Obstacle
	Start       Pose

	walls  []geom.Segment // Outer + Inner, cached for sensing
	minX   float64
	minY   float64
	maxX   float64
	maxY   float64
	obsPos []geom.Vec2 // scratch for ObstaclePositions
}

// New assembles a track from already-built geometry: the shape the world
// collaborator hands to the simulation. Wall cache and world bounds are
// computed here; margin widens the bounds beyond the outer boundary.
func New(outer, inner, checkpoints []geom.Segment, obstacles []*Obstacle, start Pose, margin float64) *Track {
	t := &Track{
		Outer:       outer,
		Inner:       inner,
		Checkpoints: checkpoints,
		Obstacles:   obstacles,
		Start:       start,
	}
	t.walls = make([]geom.Segment, 0, len(outer)+len(inner))
	t.walls = append(t.walls, outer...)
	t.walls = append(t.walls, inner...)

	t.minX, t.minY = math.Inf(1), math.Inf(1)
	t.maxX, t.maxY = math.Inf(-1), math.Inf(-1)
	for _, s := range t.walls {
		for _, p := range []geom.Vec2{s.A, s.B} {
			t.minX = math.Min(t.minX, p.X)
			t.minY = math.Min(t.minY, p.Y)
			t.maxX = math.Max(t.maxX, p.X)
			t.maxY = math.Max(t.maxY, p.Y)
		}
	}
	t.minX -= margin
	t.minY -= margin
	t.maxX += margin
	t.maxY += margin

	return t
}

// Walls returns all boundary segments (outer then inner).
func (t *Track) Walls() []geom.Segment {
	return t.walls
}

// ObstaclePositions returns the current obstacle positions. The returned
// slice is reused across calls and valid until the next UpdateObstacles.
func (t *Track) ObstaclePositions() []geom.Vec2 {
	if t.obsPos == nil {
		t.obsPos = make([]geom.Vec2, len(t.Obstacles))
	}
	for i, o := range t.Obstacles {
		t.obsPos[i] = o.Pos
	}
	return t.obsPos
}

// Contains reports whether p lies within the track's world bounds.
// Crossing a wall is detected by the sensor proximity rule; the bounds
// check only catches agents that tunnel out entirely.
func (t *Track) Contains(p geom.Vec2) bool {
	return p.X >= t.minX && p.X <= t.maxX && p.Y >= t.minY && p.Y <= t.maxY
}

// Diagonal returns the world-bounds diagonal, the effective "full scene"
// distance used by the render ray fan.
func (t *Track) Diagonal() float64 {
	return math.Hypot(t.maxX-t.minX, t.maxY-t.minY)
}

// UpdateObstacles advances obstacle drift by one tick. Called exactly once
// per simulation tick, before any agent senses.
func (t *Track) UpdateObstacles() {
	for _, o := range t.Obstacles {
		o.t += o.dt
		if o.t >= 1 {
			o.t = 1
			o.dt = -o.dt
		} else if o.t <= 0 {
			o.t = 0
			o.dt = -o.dt
		}
		o.Pos = o.a.Add(o.b.Sub(o.a).Scale(o.t))
	}
}

// Generate builds the closed track for a preset index. The same preset and
// config always produce the same course: a noisy ring of cfg.Track.Points
// cross-sections, each cross-section doubling as a checkpoint, with
// obstacles seeded onto a subset of them.
func Generate(preset int, cfg *config.Config) *Track {
	tc := cfg.Track
	noise := newPerlin(int64(preset)*7919 + 1)
	rng := rand.New(rand.NewSource(int64(preset)*104729 + 2))

	cx := tc.Width / 2
	cy := tc.Height / 2
	base := math.Min(tc.Width, tc.Height)/2 - tc.CorridorWidth

	n := tc.Points
	inner := make([]geom.Vec2, n)
	outer := make([]geom.Vec2, n)
	for i := 0; i < n; i++ {
		theta := float64(i) / float64(n) * 2 * math.Pi
		// Sample noise on a circle so the modulation closes seamlessly.
		nx := math.Cos(theta) * tc.NoiseScale
		ny := math.Sin(theta) * tc.NoiseScale
		mid := base + noise.noise2D(nx+0.5, ny+0.5)*tc.NoiseAmp

		dir := geom.Vec2{X: math.Cos(theta), Y: math.Sin(theta)}
		center := geom.Vec2{X: cx, Y: cy}
		inner[i] = center.Add(dir.Scale(mid - tc.CorridorWidth/2))
		outer[i] = center.Add(dir.Scale(mid + tc.CorridorWidth/2))
	}

	outerSegs := make([]geom.Segment, n)
	innerSegs := make([]geom.Segment, n)
	checkpoints := make([]geom.Segment, n)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		outerSegs[i] = geom.Segment{A: outer[i], B: outer[j]}
		innerSegs[i] = geom.Segment{A: inner[i], B: inner[j]}
		checkpoints[i] = geom.Segment{A: inner[i], B: outer[i]}
	}

	// Obstacles drift across the corridor on a subset of cross-sections,
	// skipping the first few so the start area stays clear.
	var obstacles []*Obstacle
	for k := 0; k < tc.Obstacles && n > 4; k++ {
		i := 2 + rng.Intn(n-2)
		cp := checkpoints[i]
		dt := tc.ObstacleSpeed
		if rng.Intn(2) == 0 {
			dt = -dt
		}
		obstacles = append(obstacles, NewObstacle(cp.A, cp.B, rng.Float64(), dt))
	}

	// Start at the first checkpoint's midpoint, facing the next one.
	startPos := checkpoints[0].Mid()
	next := checkpoints[1].Mid()
	start := Pose{
		Position: startPos,
		Heading:  math.Atan2(next.Y-startPos.Y, next.X-startPos.X),
	}

	// Margin so agents die to the proximity rule before the bounds check.
	return New(outerSegs, innerSegs, checkpoints, obstacles, start, tc.CorridorWidth)
}

// NewObstacle creates an obstacle drifting between a and b, starting at
// parameter t0 with parameter step dt. Used directly by tests; Generate
// seeds obstacles itself.
func NewObstacle(a, b geom.Vec2, t0, dt float64) *Obstacle {
	o := &Obstacle{a: a, b: b, t: t0, dt: dt}
	o.Pos = a.Add(b.Sub(a).Scale(t0))
	return o
}
