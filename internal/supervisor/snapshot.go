package supervisor

import "github.com/augv-fleet/supervisor/internal/core"

// AgentSnapshot is one agent's externally visible state (spec §4.9
// Telemetry endpoint / §6 Agent telemetry upstream).
type AgentSnapshot struct {
	ID    string          `json:"id"`
	State core.AgentState `json:"state"`
	Path  core.Path       `json:"path"`
}

// Snapshot is a read-only, JSON-marshalable view of the Supervisor's state
// for external monitoring. Safe to call concurrently with Tick.
type Snapshot struct {
	GlobalStep int             `json:"global_step"`
	Agents     []AgentSnapshot `json:"agents"`
}

// Snapshot returns the Supervisor's current externally visible state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := Snapshot{GlobalStep: s.globalStep}
	for id, agent := range s.agents {
		out.Agents = append(out.Agents, AgentSnapshot{
			ID:    id,
			State: agent.State,
			Path:  agent.Path.Clone(),
		})
	}
	return out
}
