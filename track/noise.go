package track

import (
	"math"
	"math/rand"
)

// perlin generates coherent 2D noise for track radius modulation.
type perlin struct {
	perm [512]int
}

// newPerlin creates a noise generator seeded deterministically, so a
// preset index always produces the same track.
func newPerlin(seed int64) *perlin {
	p := &perlin{}
	rng := rand.New(rand.NewSource(seed))

	var perm [256]int
	for i := range perm {
		perm[i] = i
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	for i := 0; i < 256; i++ {
		p.perm[i] = perm[i]
		p.perm[i+256] = perm[i]
	}

	return p
}

// noise2D returns a noise value in roughly [-1, 1] for 2D coordinates.
func (p *perlin) noise2D(x, y float64) float64 {
	X := int(math.Floor(x)) & 255
	Y := int(math.Floor(y)) & 255

	x -= math.Floor(x)
	y -= math.Floor(y)

	u := fade(x)
	v := fade(y)

	a := p.perm[X] + Y
	b := p.perm[X+1] + Y

	return lerp(v,
		lerp(u, grad2D(p.perm[a], x, y), grad2D(p.perm[b], x-1, y)),
		lerp(u, grad2D(p.perm[a+1], x, y-1), grad2D(p.perm[b+1], x-1, y-1)))
}

func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}

func lerp(t, a, b float64) float64 {
	return a + t*(b-a)
}

func grad2D(hash int, x, y float64) float64 {
	h := hash & 7
	u := x
	if h >= 4 {
		u = y
	}
	v := y
	if h >= 4 {
		v = x
	}
	if h&1 != 0 {
		u = -u
	}
	if h&2 != 0 {
		v = -v
	}
	return u + v*0.5
}
