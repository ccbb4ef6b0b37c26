package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/circuit/neural"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	weights := &neural.Weights{
		Inputs:  2,
		Hidden:  3,
		Outputs: 1,
		W1:      []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
		B1:      []float64{0, 0, 0},
		W2:      []float64{1, 2, 3},
		B2:      []float64{-0.5},
	}
	in := State{Generation: 7, PresetIndex: 2, BestLaps: 3, Brain: weights}
	if err := s.Save(ctx, in); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, found, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatal("saved state not found")
	}
	if out.Generation != 7 || out.PresetIndex != 2 || out.BestLaps != 3 {
		t.Errorf("counters = %+v, want generation 7 preset 2 laps 3", out)
	}
	if out.Brain == nil {
		t.Fatal("brain weights not restored")
	}
	if _, err := neural.BrainFromWeights(*out.Brain); err != nil {
		t.Fatalf("restored weights do not rebuild: %v", err)
	}
	for i, w := range weights.W1 {
		if out.Brain.W1[i] != w {
			t.Fatalf("W1[%d] = %v, want %v", i, out.Brain.W1[i], w)
		}
	}
}

func TestSaveOverwritesLatest(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	if err := s.Save(ctx, State{Generation: 1}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Save(ctx, State{Generation: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, found, err := s.Load(ctx)
	if err != nil || !found {
		t.Fatalf("load: found=%v err=%v", found, err)
	}
	if out.Generation != 2 {
		t.Errorf("generation = %d, want the later save (2)", out.Generation)
	}
}

func TestLoadMissingState(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, found, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Error("empty store reported a saved state")
	}
}

func TestLoadCorruptPayload(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	db, err := s.getDB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	_, err = db.ExecContext(ctx, `INSERT INTO sim_state (key, payload) VALUES (?, ?)`, stateKey, []byte("{not json"))
	if err != nil {
		t.Fatalf("inject corrupt payload: %v", err)
	}

	_, found, err := s.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Error("corrupt payload should read as no saved state")
	}
}

func TestClosedStoreErrors(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if err := s.Save(ctx, State{}); err == nil {
		t.Error("save on a closed store did not error")
	}
	if _, _, err := s.Load(ctx); err == nil {
		t.Error("load on a closed store did not error")
	}
}
