// Package conflict implements ConflictDetector and ConflictResolver: the
// pure pass over the Supervisor's active paths that finds spatio-temporal
// collisions, and the combinatorial-scenario engine that eliminates them.
package conflict

import (
	"sort"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/augv-fleet/supervisor/internal/core"
)

var log = logrus.WithField("module", "conflict")

// vertexKey identifies one (cell, step) occupation for grouping.
type vertexKey struct {
	cell core.Cell
	step int
}

// Detect scans assignments for Vertex, Swap, and WarehouseExclusion
// conflicts and returns them ordered by ascending step, then cell (x,y),
// then kind (Vertex < Swap < Warehouse), per the determinism requirement.
func Detect(assignments map[string]core.Path, grid *core.Grid, warehouses []core.Cell) []core.Conflict {
	var conflicts []core.Conflict

	ids := lo.Keys(assignments)
	sort.Strings(ids)

	conflicts = append(conflicts, detectVertex(assignments, ids)...)
	conflicts = append(conflicts, detectSwap(assignments, ids)...)
	conflicts = append(conflicts, detectWarehouse(assignments, ids, grid, warehouses)...)

	sort.SliceStable(conflicts, func(i, j int) bool {
		a, b := conflicts[i], conflicts[j]
		if a.Step != b.Step {
			return a.Step < b.Step
		}
		if a.Cell.X != b.Cell.X {
			return a.Cell.X < b.Cell.X
		}
		if a.Cell.Y != b.Cell.Y {
			return a.Cell.Y < b.Cell.Y
		}
		return a.Kind < b.Kind
	})

	if len(conflicts) > 0 {
		log.WithField("count", len(conflicts)).Debug("conflicts detected")
	}
	return conflicts
}

func detectVertex(assignments map[string]core.Path, ids []string) []core.Conflict {
	occupants := make(map[vertexKey][]string)
	for _, id := range ids {
		path := assignments[id]
		for i, cell := range path {
			key := vertexKey{cell: cell, step: i + 1}
			occupants[key] = append(occupants[key], id)
		}
	}

	var conflicts []core.Conflict
	for key, agents := range occupants {
		if len(agents) < 2 {
			continue
		}
		sort.Strings(agents)
		conflicts = append(conflicts, core.Conflict{
			Cell:     key.cell,
			Step:     key.step,
			Involved: agents,
			Kind:     core.ConflictVertex,
		})
	}
	return conflicts
}

func detectSwap(assignments map[string]core.Path, ids []string) []core.Conflict {
	var conflicts []core.Conflict
	for ai := 0; ai < len(ids); ai++ {
		for bi := ai + 1; bi < len(ids); bi++ {
			a, b := ids[ai], ids[bi]
			pathA, pathB := assignments[a], assignments[b]
			limit := len(pathA)
			if len(pathB) < limit {
				limit = len(pathB)
			}
			for k := 1; k < limit; k++ {
				if pathA[k-1] == pathB[k] && pathB[k-1] == pathA[k] {
					conflicts = append(conflicts,
						core.Conflict{Cell: pathA[k-1], Step: k, Involved: []string{a, b}, Kind: core.ConflictSwap},
						core.Conflict{Cell: pathA[k], Step: k + 1, Involved: []string{a, b}, Kind: core.ConflictSwap},
					)
				}
			}
		}
	}
	return conflicts
}

// detectWarehouse reserves the 3x3 Chebyshev neighbourhood of a warehouse
// anchor for an agent that has arrived there (its Path's final cell is the
// anchor, and its current cell — Path's first cell — is within Chebyshev 1
// of it). Any other agent whose Path crosses a reserved cell conflicts at
// the warehouse sentinel step: the exclusion holds for as long as the
// docking agent occupies the zone, re-evaluated each tick, not from a fixed
// tick onward.
func detectWarehouse(assignments map[string]core.Path, ids []string, grid *core.Grid, warehouses []core.Cell) []core.Conflict {
	var conflicts []core.Conflict
	for _, anchor := range warehouses {
		docking, ok := dockingAgent(assignments, ids, anchor)
		if !ok {
			continue
		}
		zone := walkableBox(grid, anchor)
		for _, other := range ids {
			if other == docking {
				continue
			}
			for _, cell := range assignments[other] {
				if _, inZone := zone[cell]; inZone {
					conflicts = append(conflicts, core.Conflict{
						Cell:     cell,
						Step:     core.WarehouseSentinelStep,
						Involved: sortedPair(docking, other),
						Kind:     core.ConflictWarehouse,
					})
				}
			}
		}
	}
	return conflicts
}

func dockingAgent(assignments map[string]core.Path, ids []string, anchor core.Cell) (string, bool) {
	for _, id := range ids {
		path := assignments[id]
		if len(path) == 0 || path.Last() != anchor {
			continue
		}
		if path.First().Chebyshev(anchor) <= 1 {
			return id, true
		}
	}
	return "", false
}

func walkableBox(grid *core.Grid, anchor core.Cell) map[core.Cell]struct{} {
	zone := make(map[core.Cell]struct{}, 9)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			c := core.Cell{X: anchor.X + dx, Y: anchor.Y + dy}
			if grid.Walkable(c) {
				zone[c] = struct{}{}
			}
		}
	}
	return zone
}

func sortedPair(a, b string) []string {
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}
