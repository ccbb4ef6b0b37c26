// Command circuit runs the headless track-racing evolution loop: a
// population of neural-network drivers on a procedurally generated closed
// circuit, advanced generation by generation with periodic persistence of
// the best brain.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/pthm-cable/circuit/config"
	"github.com/pthm-cable/circuit/neural"
	"github.com/pthm-cable/circuit/sim"
	"github.com/pthm-cable/circuit/store"
	"github.com/pthm-cable/circuit/telemetry"
	"github.com/pthm-cable/circuit/track"
)

func main() {
	configPath := flag.String("config", "", "Config YAML file (empty = use defaults)")
	dbPath := flag.String("db", "", "Sqlite state file for resume (overrides config store.path)")
	outputDir := flag.String("output", "", "Output directory for CSV telemetry (overrides config telemetry.output_dir)")
	preset := flag.Int("preset", 0, "Track preset (noise seed)")
	seed := flag.Int64("seed", 42, "Simulation RNG seed")
	generations := flag.Int("generations", 100, "Stop after this many generation advances")
	maxSteps := flag.Int64("steps", 0, "Hard tick cap (0 = no cap)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg := config.Cfg()

	sim.SetLogWriter(os.Stdout)

	// Flags override the config file.
	statePath := cfg.Store.Path
	if *dbPath != "" {
		statePath = *dbPath
	}
	csvDir := cfg.Telemetry.OutputDir
	if *outputDir != "" {
		csvDir = *outputDir
	}

	// Persistence is optional; a load failure is a fresh start, not a
	// fatal condition.
	ctx := context.Background()
	var st *store.Store
	var saved store.State
	var resumed bool
	if statePath != "" {
		var err error
		st, err = store.Open(ctx, statePath)
		if err != nil {
			log.Fatalf("failed to open state db: %v", err)
		}
		defer st.Close()

		saved, resumed, err = st.Load(ctx)
		if err != nil {
			sim.Logf("state load failed (%v), starting fresh", err)
			resumed = false
		}
	}

	presetIndex := *preset
	if resumed {
		presetIndex = saved.PresetIndex
	}

	trk := track.Generate(presetIndex, cfg)
	s := sim.New(cfg, trk, presetIndex, *seed)

	var seedBrain *neural.Brain
	if resumed {
		s.Restore(saved.Generation, saved.BestLaps)
		if saved.Brain != nil {
			var err error
			seedBrain, err = neural.BrainFromWeights(*saved.Brain)
			if err != nil {
				sim.Logf("saved brain unusable (%v), starting from random brains", err)
				seedBrain = nil
			}
		}
		sim.Logf("resumed at generation %d (preset %d, best laps %d)", saved.Generation, presetIndex, saved.BestLaps)
	}

	collector := telemetry.NewCollector(presetIndex)
	output, err := telemetry.NewOutputManager(csvDir)
	if err != nil {
		log.Fatalf("failed to create output: %v", err)
	}
	defer output.Close()
	if err := output.WriteConfig(cfg); err != nil {
		log.Fatalf("failed to write config snapshot: %v", err)
	}

	startGeneration := s.Generation()
	s.SetAdvanceHook(func(r sim.AdvanceResult) {
		stats := collector.Record(r)
		sim.LogAdvance(r)
		if err := output.WriteGeneration(stats); err != nil {
			sim.Logf("telemetry write failed: %v", err)
		}
	})

	if st != nil {
		s.SetSink(func(ev sim.GenerationEvent) {
			weights := ev.Brain.MarshalWeights()
			err := st.Save(ctx, store.State{
				Generation:  ev.Generation,
				PresetIndex: ev.PresetIndex,
				BestLaps:    ev.BestLaps,
				Brain:       &weights,
			})
			if err != nil {
				sim.Logf("state save failed: %v", err)
			}
		})
	}

	s.SpawnPopulation(seedBrain)

	start := time.Now()
	logInterval := int64(cfg.Telemetry.LogInterval)
	for {
		s.Step()

		if logInterval > 0 && s.Tick()%logInterval == 0 {
			sim.Logf("tick %d gen %d live %d laps %d (%.0f ticks/s)",
				s.Tick(), s.Generation(), s.LiveCount(), s.BestLaps(),
				float64(s.Tick())/time.Since(start).Seconds())
		}
		if s.Generation()-startGeneration >= *generations {
			break
		}
		if *maxSteps > 0 && s.Tick() >= *maxSteps {
			sim.Logf("tick cap %d reached at generation %d", *maxSteps, s.Generation())
			break
		}
	}

	sim.Logf("done: %d generations, %d ticks, best laps %d in %s",
		s.Generation()-startGeneration, s.Tick(), s.BestLaps(), time.Since(start).Round(time.Second))
}
