package sim

import "github.com/pthm-cable/circuit/neural"

// GenerationEvent is emitted at each generation boundary for the
// persistence collaborator.
type GenerationEvent struct {
	Generation  int
	PresetIndex int
	BestLaps    int
	// Brain is a clone of the best terminated agent's brain. The
	// simulation closes it after the sink returns; the sink must not
	// retain it.
	Brain *neural.Brain
}

// GenerationSink receives generation-boundary events. Called on its own
// goroutine: a slow or failing sink never stalls the tick loop, and the
// simulation proceeds with the new generation immediately.
type GenerationSink func(GenerationEvent)

// SetSink registers the persistence sink. A nil sink disables events.
func (s *Simulation) SetSink(sink GenerationSink) {
	s.sink = sink
}

// SetAdvanceHook registers a synchronous hook fired after every
// generation advance, for stats and logging.
func (s *Simulation) SetAdvanceHook(fn func(AdvanceResult)) {
	s.onAdvance = fn
}

// emitGeneration dispatches the event in the background, taking ownership
// of the brain clone for the duration of the call.
func (s *Simulation) emitGeneration(best *neural.Brain) {
	ev := GenerationEvent{
		Generation:  s.generation,
		PresetIndex: s.presetIndex,
		BestLaps:    s.bestLaps,
		Brain:       best,
	}
	go func() {
		s.sink(ev)
		ev.Brain.Close()
	}()
}
