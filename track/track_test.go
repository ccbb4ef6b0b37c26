package track

import (
	"math"
	"testing"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	return cfg
}

func TestGenerateDeterministic(t *testing.T) {
	cfg := testConfig(t)

	a := Generate(3, cfg)
	b := Generate(3, cfg)

	if len(a.Checkpoints) != len(b.Checkpoints) {
		t.Fatal("checkpoint counts differ between identical presets")
	}
	for i := range a.Checkpoints {
		if a.Checkpoints[i] != b.Checkpoints[i] {
			t.Fatalf("checkpoint %d differs between identical presets", i)
		}
	}
	if a.Start != b.Start {
		t.Error("start pose differs between identical presets")
	}

	c := Generate(4, cfg)
	same := true
	for i := range a.Checkpoints {
		if a.Checkpoints[i] != c.Checkpoints[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different presets produced identical geometry")
	}
}

func TestGenerateClosedCourse(t *testing.T) {
	cfg := testConfig(t)
	trk := Generate(0, cfg)

	n := cfg.Track.Points
	if len(trk.Checkpoints) != n {
		t.Fatalf("got %d checkpoints, want %d", len(trk.Checkpoints), n)
	}
	if len(trk.Walls()) != 2*n {
		t.Fatalf("got %d walls, want %d", len(trk.Walls()), 2*n)
	}

	// Each boundary ring must close: segment i ends where i+1 begins.
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		if trk.Outer[i].B != trk.Outer[j].A {
			t.Fatalf("outer ring broken at %d", i)
		}
		if trk.Inner[i].B != trk.Inner[j].A {
			t.Fatalf("inner ring broken at %d", i)
		}
	}

	// Start pose sits inside the world and faces checkpoint 1.
	if !trk.Contains(trk.Start.Position) {
		t.Error("start pose outside world bounds")
	}
	toNext := trk.Checkpoints[1].Mid().Sub(trk.Start.Position)
	heading := geom.FromAngle(trk.Start.Heading, 1)
	if toNext.Dot(heading) <= 0 {
		t.Error("start heading points away from the next checkpoint")
	}
}

func TestObstacleDriftStaysOnSegment(t *testing.T) {
	a := geom.Vec2{X: 0, Y: 0}
	b := geom.Vec2{X: 10, Y: 0}
	o := NewObstacle(a, b, 0.9, 0.05)

	trk := &Track{Obstacles: []*Obstacle{o}}
	for i := 0; i < 100; i++ {
		trk.UpdateObstacles()
		if o.Pos.X < -1e-9 || o.Pos.X > 10+1e-9 || math.Abs(o.Pos.Y) > 1e-9 {
			t.Fatalf("obstacle left its segment: %+v", o.Pos)
		}
	}

	// Ping-pong: parameter direction must have flipped at least once.
	if o.dt == 0.05 && o.t > 0.89 && o.t < 0.91 {
		t.Error("obstacle never moved")
	}
}

func TestObstaclePositionsMatchObstacles(t *testing.T) {
	cfg := testConfig(t)
	trk := Generate(1, cfg)

	if len(trk.Obstacles) != cfg.Track.Obstacles {
		t.Fatalf("got %d obstacles, want %d", len(trk.Obstacles), cfg.Track.Obstacles)
	}

	trk.UpdateObstacles()
	pos := trk.ObstaclePositions()
	if len(pos) != len(trk.Obstacles) {
		t.Fatalf("got %d positions, want %d", len(pos), len(trk.Obstacles))
	}
	for i, o := range trk.Obstacles {
		if pos[i] != o.Pos {
			t.Errorf("position %d stale: %+v != %+v", i, pos[i], o.Pos)
		}
	}
}
