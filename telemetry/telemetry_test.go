package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/circuit/sim"
)

func TestCollectorRecordsHistory(t *testing.T) {
	c := NewCollector(1)

	c.Record(sim.AdvanceResult{
		Outcome:    sim.Advanced,
		Generation: 1,
		PoolSize:   10,
		BestRaw:    4,
		MeanRaw:    2.5,
		BestLaps:   0,
	})
	stats := c.Record(sim.AdvanceResult{
		Outcome:    sim.Advanced,
		Generation: 2,
		PoolSize:   10,
		BestRaw:    9,
		MeanRaw:    4.0,
		BestLaps:   1,
	})

	if stats.Outcome != "advanced" {
		t.Errorf("outcome = %q, want advanced", stats.Outcome)
	}
	if stats.PresetIndex != 1 {
		t.Errorf("preset = %d, want 1", stats.PresetIndex)
	}
	if len(c.History()) != 2 {
		t.Fatalf("history length = %d, want 2", len(c.History()))
	}
	if c.BestCheckpoints() != 9 {
		t.Errorf("best checkpoints = %d, want 9", c.BestCheckpoints())
	}
	if c.BestLaps() != 1 {
		t.Errorf("best laps = %d, want 1", c.BestLaps())
	}
}

func TestCollectorBestIsMonotonic(t *testing.T) {
	c := NewCollector(0)
	c.Record(sim.AdvanceResult{Generation: 1, BestRaw: 7, BestLaps: 2})
	c.Record(sim.AdvanceResult{Generation: 2, BestRaw: 3, BestLaps: 0})

	if c.BestCheckpoints() != 7 {
		t.Errorf("best checkpoints = %d, want the earlier record 7", c.BestCheckpoints())
	}
	if c.BestLaps() != 2 {
		t.Errorf("best laps = %d, want the earlier record 2", c.BestLaps())
	}
}

func TestOutputManagerDisabled(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil {
		t.Fatalf("empty dir should disable output, got error: %v", err)
	}
	if om != nil {
		t.Fatal("empty dir should return a nil manager")
	}

	// All methods must be safe on the nil manager.
	if err := om.WriteGeneration(GenerationStats{}); err != nil {
		t.Errorf("nil manager WriteGeneration: %v", err)
	}
	if err := om.Close(); err != nil {
		t.Errorf("nil manager Close: %v", err)
	}
	if om.Dir() != "" {
		t.Errorf("nil manager Dir() = %q, want empty", om.Dir())
	}
}

func TestOutputManagerWritesCSV(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatalf("create output manager: %v", err)
	}

	rows := []GenerationStats{
		{Generation: 1, Outcome: "advanced", PoolSize: 10, BestCheckpoints: 3, BestLaps: 0, DurationTicks: 500},
		{Generation: 2, Outcome: "advanced", PoolSize: 10, BestCheckpoints: 5, BestLaps: 1, DurationTicks: 800},
	}
	for _, row := range rows {
		if err := om.WriteGeneration(row); err != nil {
			t.Fatalf("write generation: %v", err)
		}
	}
	if err := om.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "generations.csv"))
	if err != nil {
		t.Fatalf("read generations.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows:\n%s", len(lines), data)
	}
	if !strings.Contains(lines[0], "generation") || !strings.Contains(lines[0], "best_checkpoints") {
		t.Errorf("header missing expected columns: %s", lines[0])
	}
	if strings.Contains(lines[2], "generation") {
		t.Errorf("header repeated on second row: %s", lines[2])
	}
}
