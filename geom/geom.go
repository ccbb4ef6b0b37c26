// Package geom provides the 2D primitives the simulation is built on:
// vectors, segments, and the intersection and distance tests used by
// sensing, collision and checkpoint capture.
package geom

import "math"

// Vec2 is a 2D point or vector.
type Vec2 struct {
	X, Y float64
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{v.X + o.X, v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{v.X - o.X, v.Y - o.Y}
}

// Scale returns v scaled by s.
func (v Vec2) Scale(s float64) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Len returns the magnitude of v.
func (v Vec2) Len() float64 {
	return math.Hypot(v.X, v.Y)
}

// Dist returns the Euclidean distance between v and o.
func (v Vec2) Dist(o Vec2) float64 {
	return math.Hypot(v.X-o.X, v.Y-o.Y)
}

// Dot returns the dot product of v and o.
func (v Vec2) Dot(o Vec2) float64 {
	return v.X*o.X + v.Y*o.Y
}

// Limit returns v with its magnitude clamped to max.
func (v Vec2) Limit(max float64) Vec2 {
	l := v.Len()
	if l <= max || l == 0 {
		return v
	}
	return v.Scale(max / l)
}

// FromAngle returns a vector of the given length pointing at angle a.
func FromAngle(a, length float64) Vec2 {
	return Vec2{math.Cos(a) * length, math.Sin(a) * length}
}

// Segment is an immutable pair of endpoints. Used for track walls
// and checkpoints.
type Segment struct {
	A, B Vec2
}

// Mid returns the segment midpoint.
func (s Segment) Mid() Vec2 {
	return Vec2{(s.A.X + s.B.X) / 2, (s.A.Y + s.B.Y) / 2}
}

// DistancePointToLine returns the unsigned distance from p to the infinite
// line through a and b. Deliberately not clamped to the segment: checkpoint
// capture uses the perpendicular "goal distance", while actual collision
// goes through IntersectRaySegment. Degenerate a==b falls back to the
// point distance.
func DistancePointToLine(p, a, b Vec2) float64 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	l := math.Hypot(dx, dy)
	if l == 0 {
		return p.Dist(a)
	}
	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / l
}

// IntersectRaySegment intersects a ray (origin, unit direction dir, maximum
// length) with the wall segment a-b. A hit is reported only when both
// parametric coordinates lie strictly inside (0,1): a ray never registers a
// hit exactly at its own origin or exactly at full range. Parallel geometry
// (zero denominator) is no hit.
func IntersectRaySegment(origin, dir Vec2, length float64, a, b Vec2) (Vec2, bool) {
	end := origin.Add(dir.Scale(length))

	x1, y1 := a.X, a.Y
	x2, y2 := b.X, b.Y
	x3, y3 := origin.X, origin.Y
	x4, y4 := end.X, end.Y

	den := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if den == 0 {
		return Vec2{}, false
	}

	t := ((x1-x3)*(y3-y4) - (y1-y3)*(x3-x4)) / den
	u := -((x1-x2)*(y1-y3) - (y1-y2)*(x1-x3)) / den
	if t <= 0 || t >= 1 || u <= 0 || u >= 1 {
		return Vec2{}, false
	}
	return Vec2{x1 + t*(x2-x1), y1 + t*(y2-y1)}, true
}

// ClosestPointOnRay returns the index of the point nearest to origin among
// those lying within tolerance of the ray line through origin along dir,
// no farther than rng, and not behind the origin. Returns -1 when nothing
// qualifies.
func ClosestPointOnRay(origin, dir Vec2, rng float64, points []Vec2, tolerance float64) int {
	best := -1
	bestDist := math.Inf(1)
	lineEnd := origin.Add(dir)

	for i, p := range points {
		if dir.Dot(p.Sub(origin)) < 0 {
			continue
		}
		d := origin.Dist(p)
		if d > rng {
			continue
		}
		if DistancePointToLine(p, origin, lineEnd) > tolerance {
			continue
		}
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}
