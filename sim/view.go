package sim

import (
	"github.com/pthm-cable/circuit/components"
	"github.com/pthm-cable/circuit/geom"
)

// AgentView is a read-only snapshot of one live agent, for rendering and
// analytics collaborators. Nothing here feeds back into control.
type AgentView struct {
	ID         uint32
	Position   geom.Vec2
	Heading    float64
	State      components.State
	RawFitness int
	Laps       int
}

// Agents returns a snapshot of every live agent.
func (s *Simulation) Agents() []AgentView {
	views := make([]AgentView, 0, s.liveCount)

	query := s.agentFilter.Query()
	for query.Next() {
		pos, _, _, rot, prog, meta := query.Get()
		views = append(views, AgentView{
			ID:         meta.ID,
			Position:   geom.Vec2{X: pos.X, Y: pos.Y},
			Heading:    rot.Heading,
			State:      meta.State,
			RawFitness: prog.RawFitness,
			Laps:       prog.Laps,
		})
	}
	return views
}

// RenderView casts the high-resolution render fan from the currently best
// live agent (highest raw fitness). Returns nil when no agent is live.
func (s *Simulation) RenderView() []RenderRay {
	var (
		found   bool
		bestRaw = -1
		bestPos geom.Vec2
		bestHdg float64
	)

	query := s.agentFilter.Query()
	for query.Next() {
		pos, _, _, rot, prog, meta := query.Get()
		if meta.State != components.StateAlive {
			continue
		}
		if prog.RawFitness > bestRaw {
			found = true
			bestRaw = prog.RawFitness
			bestPos = geom.Vec2{X: pos.X, Y: pos.Y}
			bestHdg = rot.Heading
		}
	}
	if !found {
		return nil
	}
	return RenderFan(bestPos, bestHdg, s.trk, s.cfg.Sensors.RenderRays)
}
