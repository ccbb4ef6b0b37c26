package sim

import (
	"testing"

	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/geom"
	"github.com/pthm-cable/circuit/track"
)

// testTrack builds a straight corridor along +X: walls at y = +-40,
// three checkpoints at x = 100, 200, 300, start at (50, 0) heading 0.
func testTrack(obstacles ...*track.Obstacle) *track.Track {
	outer := []geom.Segment{{A: geom.Vec2{X: 0, Y: -40}, B: geom.Vec2{X: 1000, Y: -40}}}
	inner := []geom.Segment{{A: geom.Vec2{X: 0, Y: 40}, B: geom.Vec2{X: 1000, Y: 40}}}
	checkpoints := []geom.Segment{
		{A: geom.Vec2{X: 100, Y: -40}, B: geom.Vec2{X: 100, Y: 40}},
		{A: geom.Vec2{X: 200, Y: -40}, B: geom.Vec2{X: 200, Y: 40}},
		{A: geom.Vec2{X: 300, Y: -40}, B: geom.Vec2{X: 300, Y: 40}},
	}
	start := track.Pose{Position: geom.Vec2{X: 50, Y: 0}, Heading: 0}
	return track.New(outer, inner, checkpoints, obstacles, start, 50)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}
	cfg.Population.Size = 5
	cfg.Population.Elites = 1
	return cfg
}

func newTestSim(t *testing.T, cfg *config.Config, trk *track.Track) *Simulation {
	t.Helper()
	if trk == nil {
		trk = testTrack()
	}
	return New(cfg, trk, 0, 42)
}

func TestFreshStart(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, nil)
	s.SpawnPopulation(nil)

	if s.Generation() != 0 {
		t.Errorf("fresh start generation = %d, want 0", s.Generation())
	}
	if s.LiveCount() != cfg.Population.Size {
		t.Errorf("live count = %d, want %d", s.LiveCount(), cfg.Population.Size)
	}
	if s.TerminatedCount() != 0 {
		t.Errorf("terminated pool should start empty, got %d", s.TerminatedCount())
	}

	agents := s.Agents()
	if len(agents) != cfg.Population.Size {
		t.Fatalf("got %d agent views, want %d", len(agents), cfg.Population.Size)
	}
	seen := map[uint32]bool{}
	for _, a := range agents {
		if a.State != components.StateAlive {
			t.Errorf("agent %d spawned in state %s", a.ID, a.State)
		}
		if (a.Position != geom.Vec2{X: 50, Y: 0}) {
			t.Errorf("agent %d not at the start pose: %+v", a.ID, a.Position)
		}
		if seen[a.ID] {
			t.Errorf("duplicate agent ID %d", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestSeedBrainSpawn(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.MutationRate = 1.0
	s := newTestSim(t, cfg, nil)

	seed := s.newRandomBrain()
	want := seed.MarshalWeights()
	s.SpawnPopulation(seed)

	// Agent 0 carries the seed unmutated; the rest are mutated clones.
	got := s.brains[0].MarshalWeights()
	for i := range want.W1 {
		if got.W1[i] != want.W1[i] {
			t.Fatal("agent 0 does not carry the seed brain unmutated")
		}
	}
	for id := uint32(1); int(id) < cfg.Population.Size; id++ {
		w := s.brains[id].MarshalWeights()
		same := true
		for i := range want.W1 {
			if w.W1[i] != want.W1[i] {
				same = false
				break
			}
		}
		if same {
			t.Errorf("agent %d should be a mutated clone of the seed", id)
		}
	}
}

func TestLiveAndTerminatedStayDisjoint(t *testing.T) {
	cfg := testConfig(t)
	cfg.Agent.Lifespan = 10 // force deaths quickly
	s := newTestSim(t, cfg, nil)
	s.SpawnPopulation(nil)

	for i := 0; i < 11 && s.LiveCount() > 0; i++ {
		s.Step()
		if s.Generation() > 0 {
			return // whole population already turned over
		}
		if s.LiveCount()+s.TerminatedCount() != cfg.Population.Size {
			t.Fatalf("live %d + terminated %d != population %d",
				s.LiveCount(), s.TerminatedCount(), cfg.Population.Size)
		}
		for _, a := range s.terminated {
			if _, ok := s.brains[a.id]; ok {
				t.Fatalf("agent %d is in both live and terminated sets", a.id)
			}
		}
	}
}

func TestObstaclesMoveOncePerTick(t *testing.T) {
	o := track.NewObstacle(geom.Vec2{X: 150, Y: -40}, geom.Vec2{X: 150, Y: 40}, 0.5, 0.01)
	trk := testTrack(o)

	cfg := testConfig(t)
	cfg.Population.Size = 3
	s := newTestSim(t, cfg, trk)
	s.SpawnPopulation(nil)

	before := o.Pos
	s.Step()
	moved := o.Pos.Dist(before)
	want := 0.01 * 80 // dt * segment length
	if diff := moved - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("obstacle moved %v in one tick, want exactly %v", moved, want)
	}
}

func TestFitnessThresholdForcesAdvance(t *testing.T) {
	cfg := testConfig(t)
	cfg.Population.Size = 3
	cfg.Population.FitnessThreshold = 5
	s := newTestSim(t, cfg, nil)
	s.SpawnPopulation(nil)

	// Hand one agent a raw fitness at the threshold.
	query := s.agentFilter.Query()
	first := true
	for query.Next() {
		_, _, _, _, prog, _ := query.Get()
		if first {
			prog.RawFitness = 5
			first = false
		}
	}

	var result AdvanceResult
	s.SetAdvanceHook(func(r AdvanceResult) { result = r })
	s.Step()

	if s.Generation() != 1 {
		t.Fatalf("generation = %d after threshold hit, want 1", s.Generation())
	}
	if result.Outcome != Advanced {
		t.Errorf("outcome = %s, want advanced", result.Outcome)
	}
	if result.BestRaw < 5 {
		t.Errorf("best raw = %d, want >= 5", result.BestRaw)
	}
	if s.LiveCount() != cfg.Population.Size {
		t.Errorf("new generation live count = %d, want %d", s.LiveCount(), cfg.Population.Size)
	}
}

func TestRenderViewTagsHits(t *testing.T) {
	o := track.NewObstacle(geom.Vec2{X: 60, Y: -10}, geom.Vec2{X: 60, Y: 10}, 0.5, 0)
	trk := testTrack(o)

	cfg := testConfig(t)
	cfg.Population.Size = 1
	s := newTestSim(t, cfg, trk)
	s.SpawnPopulation(nil)

	rays := s.RenderView()
	if len(rays) != cfg.Sensors.RenderRays {
		t.Fatalf("got %d render rays, want %d", len(rays), cfg.Sensors.RenderRays)
	}
	var walls, obstacles int
	for _, r := range rays {
		switch r.Hit {
		case HitWall:
			walls++
		case HitObstacle:
			obstacles++
		}
		if r.Hit != HitNone && r.Distance <= 0 {
			t.Errorf("hit ray has non-positive distance %v", r.Distance)
		}
	}
	if walls == 0 {
		t.Error("render fan inside a corridor should hit walls")
	}
	if obstacles == 0 {
		t.Error("render fan should tag the obstacle directly ahead")
	}
}

func TestRenderViewNoLiveAgents(t *testing.T) {
	cfg := testConfig(t)
	s := newTestSim(t, cfg, nil)
	if rays := s.RenderView(); rays != nil {
		t.Errorf("render view with no agents should be nil, got %d rays", len(rays))
	}
}
