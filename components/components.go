// Package components defines the ECS components attached to each agent.
package components

// Position is an agent's world position.
type Position struct {
	X, Y float64
}

// Velocity is an agent's velocity, in units per tick.
type Velocity struct {
	X, Y float64
}

// Acceleration accumulates steering force within a tick and is zeroed
// after integration.
type Acceleration struct {
	X, Y float64
}

// Rotation is an agent's heading in radians.
type Rotation struct {
	Heading float64
}

// Progress tracks lap progress and the stagnation counter.
type Progress struct {
	CheckpointIndex     int // next checkpoint target, wraps modulo checkpoint count
	Laps                int // incremented on each wrap to 0
	RawFitness          int // checkpoints captured this life
	FramesSinceProgress int // ticks since the last capture
}

// State is an agent's lifecycle state. Dead and Finished are terminal.
type State uint8

const (
	StateAlive State = iota
	StateDead
	StateFinished
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAlive:
		return "alive"
	case StateDead:
		return "dead"
	case StateFinished:
		return "finished"
	}
	return "unknown"
}

// AgentMeta bundles identity and lifecycle state.
type AgentMeta struct {
	ID    uint32
	State State
}
