package supervisor

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/ingest"
)

// ingest drains every inbox and applies accepted messages: route requests
// append to waypoint queues, obstacle reports flip walkability (debounced),
// and control messages transition agents to/from Blocked. Per the error
// policy (spec §7), unknown agents/targets are skipped per-entry and
// logged; malformed input never reaches here (dropped by the ingest
// servers themselves).
func (s *Supervisor) ingest() {
	for _, msg := range s.routeInbox.Drain() {
		s.applyRoute(msg)
	}
	for _, report := range s.obstacleInbox.Drain() {
		s.applyObstacleReport(report)
	}
	for _, ctrl := range s.controlInbox.Drain() {
		s.applyControl(ctrl)
	}
}

func (s *Supervisor) applyRoute(msg ingest.RouteMessage) {
	entry := log.WithFields(logrus.Fields{"correlation_id": msg.CorrelationID, "agent_id": msg.AgentID})
	agent, ok := s.agents[msg.AgentID]
	if !ok {
		entry.Warn("route message: unknown agent, skipping")
		return
	}
	for _, target := range msg.Targets {
		pos, ok := s.resolver.Resolve(target)
		if !ok {
			entry.WithField("target", target).Warn("route message: unknown target, skipping")
			continue
		}
		agent.EnqueueWaypoint(pos)
	}
}

func (s *Supervisor) applyObstacleReport(report ingest.ObstacleReport) {
	entry := log.WithFields(logrus.Fields{"correlation_id": report.CorrelationID, "agent_id": report.AgentID})
	rt, ok := s.runtimes[report.AgentID]
	if !ok {
		entry.Warn("obstacle report: unknown agent, skipping")
		return
	}
	reporterCell := s.grid.CellAt(rt.handle.CurrentPosition())
	forward := rt.heading
	right := core.Cell{X: forward.Y, Y: -forward.X}

	for _, off := range report.Blocked {
		dx, dy := off[0], off[1]
		target := core.Cell{
			X: reporterCell.X + dx*forward.X + dy*right.X,
			Y: reporterCell.Y + dx*forward.Y + dy*right.Y,
		}
		s.markObstacle(target, reporterCell, entry)
	}
}

func (s *Supervisor) markObstacle(target, reporterCell core.Cell, entry *logrus.Entry) {
	if target == reporterCell {
		return
	}
	if !s.grid.Walkable(target) {
		return
	}
	last, seen := s.obstacles[target]
	now := time.Now()
	if seen && now.Sub(last) < s.cfg.DebounceInterval {
		return
	}
	s.obstacles[target] = now
	s.grid.SetWalkable(target, false)
	entry.WithField("cell", target).Info("obstacle report: cell marked blocked")
}

func (s *Supervisor) applyControl(ctrl ControlMessage) {
	if ctrl.Stop {
		if ctrl.AgentID == "" {
			for id, a := range s.agents {
				a.State = core.StateBlocked
				s.blocked[id] = true
			}
			s.phase = PhaseCollectingReady
			log.Warn("control: stop-all requested, every agent blocked")
			return
		}
		if a, ok := s.agents[ctrl.AgentID]; ok {
			a.State = core.StateBlocked
			s.blocked[ctrl.AgentID] = true
			log.WithField("agent_id", ctrl.AgentID).Warn("control: agent blocked")
		}
		return
	}
	// Resume.
	if ctrl.AgentID == "" {
		for id, a := range s.agents {
			if a.State == core.StateBlocked {
				a.State = core.StateIdle
			}
			delete(s.blocked, id)
		}
		return
	}
	if a, ok := s.agents[ctrl.AgentID]; ok && a.State == core.StateBlocked {
		a.State = core.StateIdle
	}
	delete(s.blocked, ctrl.AgentID)
}
