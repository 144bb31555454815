// Package planner implements the single-agent shortest-path search the
// Supervisor calls to produce a Path for one agent at a time. It is pure and
// stateless: it never mutates the Grid, consulting a caller-supplied blocked
// overlay instead of toggling walkability in place.
package planner

import (
	"container/heap"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/core"
)

var log = logrus.WithField("module", "planner")

// DefaultExpansionCap bounds how many nodes A* may expand before giving up,
// guarding against runaway searches on pathological inputs.
const DefaultExpansionCap = 10000

// stepCost is the edge weight for one axis-aligned move, scaled by 10 so the
// Manhattan heuristic below stays an integer lower bound.
const stepCost = 10

// Options configures one Planner call. The zero value uses DefaultExpansionCap.
type Options struct {
	// Blocked is the transient overlay: cells in this set are treated as
	// not walkable for this call only. The shared Grid is never mutated.
	Blocked map[core.Cell]bool

	// ExpansionCap overrides DefaultExpansionCap when positive.
	ExpansionCap int
}

// node is one entry in the A* open set.
type node struct {
	cell   core.Cell
	g      int
	f      int
	h      int
	order  int // insertion order, the final tie-break for determinism
	parent *node
	index  int // heap index, maintained by container/heap
}

type openHeap []*node

func (h openHeap) Len() int { return len(h) }
func (h openHeap) Less(i, j int) bool {
	if h[i].f != h[j].f {
		return h[i].f < h[j].f
	}
	if h[i].h != h[j].h {
		return h[i].h < h[j].h
	}
	return h[i].order < h[j].order
}
func (h openHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}
func (h *openHeap) Push(x any) {
	n := x.(*node)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *openHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// heuristic is the Manhattan distance scaled by stepCost: an admissible lower
// bound on the sum-of-step cost for a 4-connected grid, which guarantees A*
// returns optimal paths (P6).
func heuristic(a, b core.Cell) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return stepCost * (dx + dy)
}

// Find returns the shortest Cell sequence from start to goal on grid,
// treating cells in opts.Blocked as not walkable, or a wrapped
// core.ErrNoPathFound / core.ErrSearchExhausted.
func Find(grid *core.Grid, start, goal core.Cell, opts Options) (core.Path, error) {
	entry := log.WithFields(logrus.Fields{"start": start, "goal": goal})

	cap := opts.ExpansionCap
	if cap <= 0 {
		cap = DefaultExpansionCap
	}

	if start == goal {
		return core.Path{start}, nil
	}
	if opts.Blocked[goal] || !grid.Walkable(goal) {
		entry.Debug("goal is blocked or not walkable")
		return nil, fmt.Errorf("planner: goal %v unreachable: %w", goal, core.ErrNoPathFound)
	}

	open := &openHeap{}
	heap.Init(open)
	visited := make(map[core.Cell]*node)

	start_ := &node{cell: start, g: 0, h: heuristic(start, goal), order: 0}
	start_.f = start_.g + start_.h
	heap.Push(open, start_)
	visited[start] = start_

	expansions := 0
	order := 1

	for open.Len() > 0 {
		if expansions >= cap {
			entry.Warn("planner: expansion cap hit")
			return nil, fmt.Errorf("planner: cap %d hit searching %v -> %v: %w", cap, start, goal, core.ErrSearchExhausted)
		}
		cur := heap.Pop(open).(*node)
		expansions++

		if cur.cell == goal {
			return retrace(cur), nil
		}

		for _, n := range grid.Neighbours(cur.cell) {
			if opts.Blocked[n] || !grid.Walkable(n) {
				continue
			}
			g := cur.g + stepCost*grid.TraversalCost(n)
			if existing, ok := visited[n]; ok && existing.g <= g {
				continue
			}
			nn := &node{
				cell:   n,
				g:      g,
				h:      heuristic(n, goal),
				parent: cur,
				order:  order,
			}
			nn.f = nn.g + nn.h
			order++
			visited[n] = nn
			heap.Push(open, nn)
		}
	}

	entry.Debug("planner: open set exhausted without reaching goal")
	return nil, fmt.Errorf("planner: no path %v -> %v: %w", start, goal, core.ErrNoPathFound)
}

// retrace walks parent pointers from goal to start and reverses them into a
// forward Path.
func retrace(n *node) core.Path {
	var out core.Path
	for cur := n; cur != nil; cur = cur.parent {
		out = append(out, cur.cell)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
