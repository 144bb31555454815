package planner

import (
	"errors"
	"testing"

	"github.com/augv-fleet/supervisor/internal/core"
)

func TestFindShortestPathOnEmptyGrid(t *testing.T) {
	grid := core.NewGrid(10, 10)
	path, err := Find(grid, core.Cell{X: 0, Y: 0}, core.Cell{X: 3, Y: 4}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// P6: on an empty grid the Manhattan distance is the true shortest
	// path length (in cells, i.e. len(path)-1 steps).
	if want := 3 + 4; len(path)-1 != want {
		t.Fatalf("path length = %d, want %d steps", len(path)-1, want)
	}
	if path.First() != (core.Cell{X: 0, Y: 0}) || path.Last() != (core.Cell{X: 3, Y: 4}) {
		t.Fatalf("path endpoints wrong: %v", path)
	}
	if !path.Valid() {
		t.Fatalf("path should satisfy the step invariant: %v", path)
	}
}

func TestFindRespectsBlockedOverlayWithoutMutatingGrid(t *testing.T) {
	grid := core.NewGrid(3, 3)
	blocked := map[core.Cell]bool{{X: 1, Y: 0}: true, {X: 1, Y: 1}: true, {X: 1, Y: 2}: true}

	_, err := Find(grid, core.Cell{X: 0, Y: 1}, core.Cell{X: 2, Y: 1}, Options{Blocked: blocked})
	if !errors.Is(err, core.ErrNoPathFound) {
		t.Fatalf("expected ErrNoPathFound behind a full column block, got %v", err)
	}

	// The overlay must never have touched the shared Grid (spec's overlay
	// design note: Planner consults `blocked`, it never mutates the Grid).
	for c := range blocked {
		if !grid.Walkable(c) {
			t.Fatalf("grid cell %v should remain walkable after a blocked-overlay call", c)
		}
	}
}

func TestFindFailsOnWalledOffGoal(t *testing.T) {
	grid := core.NewGrid(3, 3)
	grid.SetWalkable(core.Cell{X: 1, Y: 0}, false)
	grid.SetWalkable(core.Cell{X: 1, Y: 1}, false)
	grid.SetWalkable(core.Cell{X: 1, Y: 2}, false)

	_, err := Find(grid, core.Cell{X: 0, Y: 0}, core.Cell{X: 2, Y: 0}, Options{})
	if !errors.Is(err, core.ErrNoPathFound) {
		t.Fatalf("expected ErrNoPathFound, got %v", err)
	}
}

func TestFindExpansionCapExhausted(t *testing.T) {
	grid := core.NewGrid(50, 50)
	_, err := Find(grid, core.Cell{X: 0, Y: 0}, core.Cell{X: 49, Y: 49}, Options{ExpansionCap: 5})
	if !errors.Is(err, core.ErrSearchExhausted) {
		t.Fatalf("expected ErrSearchExhausted with a tiny cap, got %v", err)
	}
}

func TestFindSameCellReturnsSingleton(t *testing.T) {
	grid := core.NewGrid(5, 5)
	path, err := Find(grid, core.Cell{X: 2, Y: 2}, core.Cell{X: 2, Y: 2}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(path) != 1 {
		t.Fatalf("start == goal should yield a 1-cell path, got %v", path)
	}
}

func TestFindIsDeterministicAcrossRuns(t *testing.T) {
	grid := core.NewGrid(8, 8)
	start, goal := core.Cell{X: 0, Y: 0}, core.Cell{X: 7, Y: 7}

	first, err := Find(grid, start, goal, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := Find(grid, start, goal, Options{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d produced a different-length path: %v vs %v", i, again, first)
		}
		for j := range first {
			if again[j] != first[j] {
				t.Fatalf("run %d diverged at index %d: %v vs %v", i, j, again, first)
			}
		}
	}
}
