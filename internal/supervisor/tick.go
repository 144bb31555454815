package supervisor

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/conflict"
	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/planner"
)

// assignIdle plans a Path for every Idle agent with a pending waypoint
// (spec §4.5 step 2). The transient block set is every other agent's
// current occupied cell, so a freshly planned path never starts by walking
// straight into someone already standing there.
func (s *Supervisor) assignIdle() {
	for id, agent := range s.agents {
		if agent.State != core.StateIdle || len(agent.Waypoints) == 0 {
			continue
		}
		goal, _ := agent.PopWaypoint()
		rt := s.runtimes[id]
		start := s.grid.CellAt(rt.handle.CurrentPosition())
		goalCell := s.grid.CellAt(goal)

		opts := s.cfg.Planning
		opts.Blocked = s.occupiedCells(id)
		path, err := planner.Find(s.grid, start, goalCell, opts)
		if err != nil {
			entry := log.WithFields(logrus.Fields{"agent_id": id, "start": start, "goal": goalCell})
			if errors.Is(err, core.ErrSearchExhausted) {
				entry.Warn("assign: planner exhausted, retrying next tick")
			} else {
				entry.Debug("assign: no path found, retrying next tick")
			}
			// Re-queue: the agent stays Idle and tries again next tick.
			agent.Waypoints = append([]core.WorldPoint{goal}, agent.Waypoints...)
			continue
		}
		agent.Path = path
		agent.State = core.StateWaitingForStep
	}
}

// resolveConflicts snapshots every agent's committed Path into an
// assignments map, runs ConflictDetector + ConflictResolver over it (spec
// §4.5 step 3), and writes the result back. Agents with an empty Path are
// excluded: they have nothing to conflict over.
func (s *Supervisor) resolveConflicts() {
	assignments := make(map[string]core.Path)
	for id, agent := range s.agents {
		if len(agent.Path) > 0 {
			assignments[id] = agent.Path
		}
	}
	if len(assignments) == 0 {
		return
	}

	resolved, err := conflict.Resolve(s.grid, assignments, s.warehouses, s.cfg.Resolve)
	if err != nil {
		log.WithError(err).Warn("resolveConflicts: resolution exhausted, residual conflicts remain")
	}
	for id, path := range resolved {
		s.agents[id].Path = path
	}
}

// advanceIfReady implements the lockstep gate and advance steps (spec §4.5
// steps 4-5): once every WaitingForStep agent has a non-empty Path, the
// global step increments and each of them is instructed to move one cell.
func (s *Supervisor) advanceIfReady() {
	var ready []string
	for id, agent := range s.agents {
		if agent.State == core.StateWaitingForStep {
			ready = append(ready, id)
		}
	}
	if len(ready) == 0 {
		return
	}
	for _, id := range ready {
		if len(s.agents[id].Path) == 0 {
			return // not all ready yet; wait for the next tick
		}
	}

	if s.phase != PhaseAllReadyAdvance {
		s.phase = PhaseAllReadyAdvance
	}

	s.globalStep++
	for _, id := range ready {
		agent := s.agents[id]
		rt := s.runtimes[id]

		if len(agent.Path) < 2 {
			// Already standing on its target; nothing to move to.
			agent.Path = nil
			agent.State = core.StateWaitingAtTarget
			agent.WaitingAtTargetSinceStep = s.tickCount
			continue
		}

		next := agent.Path[1]
		if next != agent.Path[0] {
			// A wait step is not a move; keep the last move's heading.
			rt.heading = headingTowards(agent.Path[0], next)
		}
		rt.ticket = rt.handle.AdvanceOneCell(next)
		agent.State = core.StateMoving
	}
	s.phase = PhaseCollectingReady
}

func headingTowards(from, to core.Cell) core.Cell {
	dx, dy := to.X-from.X, to.Y-from.Y
	if dx == 0 && dy == 0 {
		return core.Cell{X: 1, Y: 0}
	}
	return core.Cell{X: dx, Y: dy}
}

// trimTolerance is the fraction of a cell diameter within which an agent's
// actual world position is considered "at" a Path cell, per spec §4.5.3.
const trimTolerance = 0.1

// trimAll drops leading Path cells the agent has already passed, per spec
// §4.5 step 6, never removing the cell currently being traversed. Moving
// agents are skipped: collectCompletedMoves already owns popping the front
// cell for them, gated on the move-ticket actually firing, not on position —
// running both in the same tick would consume two Path cells for one move.
func (s *Supervisor) trimAll() {
	for id, agent := range s.agents {
		if len(agent.Path) == 0 || agent.State == core.StateMoving {
			continue
		}
		pos := s.runtimes[id].handle.CurrentPosition()
		nearest := nearestIndex(agent.Path, pos)
		// cellDistance is squared, so compare against the squared tolerance.
		if nearest > 0 && cellDistance(agent.Path[nearest], pos) <= trimTolerance*trimTolerance {
			agent.Path = agent.Path[nearest:]
		}
		if len(agent.Path) == 0 {
			agent.Path = nil
		}
	}
}

// nearestIndex returns the index of the Path cell closest to pos, including
// the last index: an agent standing on its final cell must be trimmable down
// to a 1-cell path. The caller's nearest > 0 check already guards against
// trimming away everything.
func nearestIndex(path core.Path, pos core.WorldPoint) int {
	best := 0
	bestDist := cellDistance(path[0], pos)
	for i := 1; i < len(path); i++ {
		d := cellDistance(path[i], pos)
		if d < bestDist-trimTolerance {
			best, bestDist = i, d
		}
	}
	return best
}

func cellDistance(c core.Cell, pos core.WorldPoint) float64 {
	wp := c.WorldPoint()
	dx := wp.X - pos.X
	dy := wp.Y - pos.Y
	return dx*dx + dy*dy
}

// completeWaypoints transitions WaitingAtTarget agents to Idle once they
// have held the target for the configured number of ticks (spec §4.5 step
// 7). A still-nonempty waypoint queue is picked up by assignIdle next tick.
func (s *Supervisor) completeWaypoints() {
	for _, agent := range s.agents {
		if agent.State != core.StateWaitingAtTarget {
			continue
		}
		if s.tickCount-agent.WaitingAtTargetSinceStep >= s.cfg.HoldTicks {
			agent.State = core.StateIdle
		}
	}
}
