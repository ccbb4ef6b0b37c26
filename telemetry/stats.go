// Package telemetry aggregates per-generation statistics and writes them
// as CSV experiment output.
package telemetry

import (
	"github.com/pthm-cable/circuit/sim"
)

// GenerationStats is one generation's summary row.
type GenerationStats struct {
	Generation      int     `csv:"generation"`
	PresetIndex     int     `csv:"preset"`
	Outcome         string  `csv:"outcome"`
	PoolSize        int     `csv:"pool_size"`
	BestCheckpoints int     `csv:"best_checkpoints"`
	MeanCheckpoints float64 `csv:"mean_checkpoints"`
	BestLaps        int     `csv:"best_laps"`
	DurationTicks   int64   `csv:"duration_ticks"`
	Elites          int     `csv:"elites"`
	Offspring       int     `csv:"offspring"`
	Randoms         int     `csv:"randoms"`
}

// Collector accumulates generation summaries over a run.
type Collector struct {
	presetIndex int
	history     []GenerationStats
	bestRaw     int // best checkpoint count seen across all generations
	bestLaps    int
}

// NewCollector creates a collector for the given track preset.
func NewCollector(presetIndex int) *Collector {
	return &Collector{presetIndex: presetIndex}
}

// Record folds one advance result into the run history and returns the CSV
// row for it.
func (c *Collector) Record(result sim.AdvanceResult) GenerationStats {
	stats := GenerationStats{
		Generation:      result.Generation,
		PresetIndex:     c.presetIndex,
		Outcome:         result.Outcome.String(),
		PoolSize:        result.PoolSize,
		BestCheckpoints: result.BestRaw,
		MeanCheckpoints: result.MeanRaw,
		BestLaps:        result.BestLaps,
		DurationTicks:   result.DurationTicks,
		Elites:          result.Elites,
		Offspring:       result.Offspring,
		Randoms:         result.Randoms,
	}
	c.history = append(c.history, stats)

	if result.BestRaw > c.bestRaw {
		c.bestRaw = result.BestRaw
	}
	if result.BestLaps > c.bestLaps {
		c.bestLaps = result.BestLaps
	}
	return stats
}

// History returns all recorded generations in order.
func (c *Collector) History() []GenerationStats {
	return c.history
}

// BestCheckpoints returns the best single-agent checkpoint count seen.
func (c *Collector) BestCheckpoints() int { return c.bestRaw }

// BestLaps returns the best lap count seen.
func (c *Collector) BestLaps() int { return c.bestLaps }
