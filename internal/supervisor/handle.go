package supervisor

import (
	"sync"
	"time"

	"github.com/augv-fleet/supervisor/internal/core"
)

// KinematicHandle is the default core.Handle implementation: it executes a
// one-cell move as a deferred completion after a fixed travel duration,
// standing in for the real vehicle-kinematics layer that is out of scope
// for the core (spec §1 Non-goals — no continuous-space physics or
// smoothing here). The move-ticket it returns is a channel closed by its
// own goroutine once the duration elapses, matching the coroutine-animation
// abstraction in the spec's design notes.
type KinematicHandle struct {
	mu       sync.Mutex
	position core.WorldPoint
	state    core.AgentState

	// StepDuration is how long one cell-to-cell move takes to report
	// ready. Defaults to 200ms if zero.
	StepDuration time.Duration
}

// NewKinematicHandle creates a handle starting at pos.
func NewKinematicHandle(pos core.WorldPoint) *KinematicHandle {
	return &KinematicHandle{position: pos, state: core.StateIdle}
}

func (h *KinematicHandle) AssignPath(core.Path) {
	// The handle executes moves one cell at a time on instruction; it does
	// not need the full plan, only AdvanceOneCell's target.
}

func (h *KinematicHandle) AdvanceOneCell(to core.Cell) <-chan struct{} {
	ticket := make(chan struct{})
	dur := h.StepDuration
	if dur <= 0 {
		dur = 200 * time.Millisecond
	}
	h.mu.Lock()
	h.state = core.StateMoving
	h.mu.Unlock()

	go func() {
		time.Sleep(dur)
		h.mu.Lock()
		h.position = to.WorldPoint()
		h.state = core.StateWaitingForStep
		h.mu.Unlock()
		close(ticket)
	}()
	return ticket
}

func (h *KinematicHandle) CurrentPosition() core.WorldPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *KinematicHandle) State() core.AgentState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// InstantHandle completes every move synchronously (a pre-closed ticket).
// Grounded on the teacher's tick-stepped simulator, which advances robot
// poses directly rather than animating them; used by Supervisor tests that
// need deterministic single-tick advances without a real clock.
type InstantHandle struct {
	mu       sync.Mutex
	position core.WorldPoint
}

// NewInstantHandle creates a handle starting at pos.
func NewInstantHandle(pos core.WorldPoint) *InstantHandle {
	return &InstantHandle{position: pos}
}

func (h *InstantHandle) AssignPath(core.Path) {}

func (h *InstantHandle) AdvanceOneCell(to core.Cell) <-chan struct{} {
	h.mu.Lock()
	h.position = to.WorldPoint()
	h.mu.Unlock()
	ticket := make(chan struct{})
	close(ticket)
	return ticket
}

func (h *InstantHandle) CurrentPosition() core.WorldPoint {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.position
}

func (h *InstantHandle) State() core.AgentState { return core.StateWaitingForStep }
