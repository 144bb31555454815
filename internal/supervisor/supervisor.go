// Package supervisor implements the single central authority described in
// spec §4.5: it owns agents, waypoints, active paths, dynamic obstacles, and
// the lockstep phase, and drives the per-tick procedure that assigns idle
// agents, resolves conflicts, and advances ready agents by one cell.
package supervisor

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/conflict"
	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/ingest"
	"github.com/augv-fleet/supervisor/internal/planner"
)

var log = logrus.WithField("module", "supervisor")

// LockstepPhase is the two-phase gate described in spec §3: the Supervisor
// collects ready agents before letting any of them advance, so that two
// agents never step onto colliding cells within the same tick.
type LockstepPhase int

const (
	PhaseCollectingReady LockstepPhase = iota
	PhaseAllReadyAdvance
)

// NameResolver resolves a named waypoint (as used in route-ingestion JSON)
// to a world position. *mapsrc.Definition satisfies this; tests can supply
// a plain map-backed stub.
type NameResolver interface {
	Resolve(name string) (core.WorldPoint, bool)
}

// Config tunes the Supervisor's tick behaviour. Zero values fall back to
// defaults.
type Config struct {
	// HoldTicks is how many ticks an agent waits at WaitingAtTarget before
	// transitioning to Idle (spec §4.5 step 7).
	HoldTicks int

	// DebounceInterval is the minimum wall-clock gap between accepted
	// dynamic-obstacle updates for the same cell (spec §4.5.2, "0.5s").
	DebounceInterval time.Duration

	Resolve  conflict.ResolveOptions
	Planning planner.Options
}

func (c Config) withDefaults() Config {
	if c.HoldTicks <= 0 {
		c.HoldTicks = 3
	}
	if c.DebounceInterval <= 0 {
		c.DebounceInterval = 500 * time.Millisecond
	}
	return c
}

// agentRuntime is the Supervisor-side bookkeeping that sits alongside
// core.Agent but is not part of the data model proper: the kinematic
// handle, its pending move ticket, and the heading used to resolve
// reporter-local obstacle offsets.
type agentRuntime struct {
	handle  core.Handle
	ticket  <-chan struct{}
	heading core.Cell // unit direction of the last executed move
}

// Supervisor is the process-wide coordinator. Per spec §9's design note, it
// is never a package-level singleton: callers construct one explicitly and
// pass it (or a narrower capability) to whatever needs it.
type Supervisor struct {
	mu sync.Mutex

	grid       *core.Grid
	warehouses []core.Cell
	resolver   NameResolver
	cfg        Config

	agents   map[string]*core.Agent
	runtimes map[string]*agentRuntime

	// globalStep only advances on a successful lockstep advance (§4.5 step
	// 5); it freezes while no agent is WaitingForStep, so hold-time
	// countdowns must not be measured against it. tickCount advances once
	// per Tick() call unconditionally and backs WaitingAtTargetSinceStep.
	globalStep int
	tickCount  int
	phase      LockstepPhase

	obstacles map[core.Cell]time.Time

	blocked map[string]bool // agent IDs forced into StateBlocked

	routeInbox    *ingest.Inbox[ingest.RouteMessage]
	obstacleInbox *ingest.Inbox[ingest.ObstacleReport]
	controlInbox  *ingest.Inbox[ControlMessage]

	wake chan struct{}
}

// ControlMessage is a stop/resume request. AgentID empty means "all agents".
type ControlMessage struct {
	AgentID string
	Stop    bool
}

// New creates a Supervisor over grid with no agents yet registered.
func New(grid *core.Grid, warehouses []core.Cell, resolver NameResolver, cfg Config) *Supervisor {
	s := &Supervisor{
		grid:          grid,
		warehouses:    warehouses,
		resolver:      resolver,
		cfg:           cfg.withDefaults(),
		agents:        make(map[string]*core.Agent),
		runtimes:      make(map[string]*agentRuntime),
		obstacles:     make(map[core.Cell]time.Time),
		blocked:       make(map[string]bool),
		routeInbox:    &ingest.Inbox[ingest.RouteMessage]{},
		obstacleInbox: &ingest.Inbox[ingest.ObstacleReport]{},
		controlInbox:  &ingest.Inbox[ControlMessage]{},
		wake:          make(chan struct{}, 1),
	}
	notify := func() {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	s.routeInbox.SetNotify(notify)
	s.obstacleInbox.SetNotify(notify)
	s.controlInbox.SetNotify(notify)
	return s
}

// RouteInbox is the ingestion point for route messages; wire it into a
// ingest.RouteServer via RouteServer.Inbox, or push directly in tests.
func (s *Supervisor) RouteInbox() *ingest.Inbox[ingest.RouteMessage] { return s.routeInbox }

// ObstacleInbox is the ingestion point for dynamic-obstacle reports.
func (s *Supervisor) ObstacleInbox() *ingest.Inbox[ingest.ObstacleReport] { return s.obstacleInbox }

// ControlInbox is the ingestion point for stop/resume requests.
func (s *Supervisor) ControlInbox() *ingest.Inbox[ControlMessage] { return s.controlInbox }

// Wake fires whenever a message lands in any inbox, letting an external
// driver loop react before its next scheduled tick (spec §4.5.1).
func (s *Supervisor) Wake() <-chan struct{} { return s.wake }

// AddAgent registers a new agent with its kinematic handle, starting Idle.
func (s *Supervisor) AddAgent(id string, handle core.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[id] = core.NewAgent(id)
	s.runtimes[id] = &agentRuntime{handle: handle, heading: core.Cell{X: 1, Y: 0}}
}

// GlobalStep returns the current lockstep tick counter.
func (s *Supervisor) GlobalStep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalStep
}

// Tick runs one full pass of the per-tick procedure in spec §4.5: ingest,
// assign, resolve, gate, advance, trim, and waypoint completion.
func (s *Supervisor) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tickCount++
	s.collectCompletedMoves()
	s.ingest()
	s.assignIdle()
	s.resolveConflicts()
	s.advanceIfReady()
	s.trimAll()
	s.completeWaypoints()
}

// collectCompletedMoves polls every Moving agent's pending ticket; agents
// whose move has finished rejoin the lockstep gate as WaitingForStep (more
// path remaining) or arrive at WaitingAtTarget (path exhausted).
func (s *Supervisor) collectCompletedMoves() {
	for id, agent := range s.agents {
		if agent.State != core.StateMoving {
			continue
		}
		rt := s.runtimes[id]
		if rt.ticket == nil {
			continue
		}
		select {
		case <-rt.ticket:
			rt.ticket = nil
			if len(agent.Path) > 0 {
				agent.Path = agent.Path[1:]
			}
			if len(agent.Path) <= 1 {
				agent.Path = nil
				agent.State = core.StateWaitingAtTarget
				agent.WaitingAtTargetSinceStep = s.tickCount
			} else {
				agent.State = core.StateWaitingForStep
			}
		default:
			// still moving
		}
	}
}

func (s *Supervisor) occupiedCells(excluding string) map[core.Cell]bool {
	occupied := make(map[core.Cell]bool)
	for id := range s.agents {
		if id == excluding {
			continue
		}
		pos := s.runtimes[id].handle.CurrentPosition()
		occupied[s.grid.CellAt(pos)] = true
	}
	return occupied
}
