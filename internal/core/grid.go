// Package core defines the domain model shared by the Planner,
// ConflictDetector, ConflictResolver, and Supervisor: the grid, paths,
// agents, and conflicts they operate on.
package core

import "math"

// WorldPoint is a continuous 2D world coordinate.
type WorldPoint struct {
	X, Y float64
}

// Cell identifies a grid square by its integer coordinates. Cell is a value
// type: identity is the (X, Y) pair, and it stays valid for the lifetime of
// the Grid it was produced from. Cell carries no pointer into the Grid's
// arena, so it is cheap to copy, hash, and use as a map key.
type Cell struct {
	X, Y int
}

// WorldPoint returns the cell's world-space position (its lower-left
// corner, matching the flooring convention used by CellAt).
func (c Cell) WorldPoint() WorldPoint {
	return WorldPoint{X: float64(c.X), Y: float64(c.Y)}
}

// Chebyshev returns the Chebyshev (L-infinity) distance between two cells.
func (c Cell) Chebyshev(other Cell) int {
	dx := abs(c.X - other.X)
	dy := abs(c.Y - other.Y)
	if dx > dy {
		return dx
	}
	return dy
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// cellState is the mutable per-cell payload, stored in a flat arena indexed
// by y*width+x rather than as a graph of pointers: Cell values are stable
// indices into this arena for the lifetime of the Grid.
type cellState struct {
	walkable      bool
	traversalCost int
}

// Grid is a rectangular W x H array of cells. It is created once from a map
// definition, mutated in place by dynamic-obstacle ingestion, and never
// destroyed. Bounds never shrink after creation and cell identity is stable
// for the grid's lifetime.
type Grid struct {
	width, height int
	cells         []cellState
}

// NewGrid creates a W x H grid with every cell walkable and traversal cost 1.
func NewGrid(width, height int) *Grid {
	cells := make([]cellState, width*height)
	for i := range cells {
		cells[i] = cellState{walkable: true, traversalCost: 1}
	}
	return &Grid{width: width, height: height, cells: cells}
}

// Width returns the grid's cell width.
func (g *Grid) Width() int { return g.width }

// Height returns the grid's cell height.
func (g *Grid) Height() int { return g.height }

func (g *Grid) index(c Cell) int { return c.Y*g.width + c.X }

// InBounds reports whether a cell lies within the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// CellAt clamps a world point's floored integer coordinates into
// [0,W) x [0,H); it never fails.
func (g *Grid) CellAt(p WorldPoint) Cell {
	x := int(math.Floor(p.X))
	y := int(math.Floor(p.Y))
	if x < 0 {
		x = 0
	} else if x > g.width-1 {
		x = g.width - 1
	}
	if y < 0 {
		y = 0
	} else if y > g.height-1 {
		y = g.height - 1
	}
	return Cell{X: x, Y: y}
}

// neighbourOffsets is deterministic and fixed so that Neighbours returns a
// stable order, which keeps A* expansion (and therefore its output on ties)
// reproducible.
var neighbourOffsets = [4]Cell{
	{X: 1, Y: 0},
	{X: -1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Neighbours returns the four axis-aligned in-bounds neighbours of c, in a
// stable order.
func (g *Grid) Neighbours(c Cell) []Cell {
	out := make([]Cell, 0, 4)
	for _, off := range neighbourOffsets {
		n := Cell{X: c.X + off.X, Y: c.Y + off.Y}
		if g.InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Walkable reports whether a cell can be entered. Out-of-bounds cells are
// never walkable.
func (g *Grid) Walkable(c Cell) bool {
	if !g.InBounds(c) {
		return false
	}
	return g.cells[g.index(c)].walkable
}

// SetWalkable mutates a cell's walkability.
func (g *Grid) SetWalkable(c Cell, walkable bool) {
	if !g.InBounds(c) {
		return
	}
	g.cells[g.index(c)].walkable = walkable
}

// TraversalCost returns a cell's traversal cost (default 1).
func (g *Grid) TraversalCost(c Cell) int {
	if !g.InBounds(c) {
		return 1
	}
	cost := g.cells[g.index(c)].traversalCost
	if cost <= 0 {
		return 1
	}
	return cost
}

// SetTraversalCost mutates a cell's traversal cost.
func (g *Grid) SetTraversalCost(c Cell, cost int) {
	if !g.InBounds(c) || cost <= 0 {
		return
	}
	g.cells[g.index(c)].traversalCost = cost
}

// WithTemporaryBlocks flips walkability of every cell in blocks to false for
// the duration of fn, then restores exactly what it found on entry — even if
// fn panics. New code should prefer passing a blocked-cell overlay directly
// to the Planner instead of mutating the shared Grid; this helper exists
// only for migration compatibility with call sites that still expect the
// live-Grid-toggling behaviour.
func (g *Grid) WithTemporaryBlocks(blocks map[Cell]bool, fn func()) {
	prior := make(map[Cell]bool, len(blocks))
	for c := range blocks {
		if !g.InBounds(c) {
			continue
		}
		prior[c] = g.cells[g.index(c)].walkable
		g.cells[g.index(c)].walkable = false
	}
	defer func() {
		for c, was := range prior {
			g.cells[g.index(c)].walkable = was
		}
	}()
	fn()
}
