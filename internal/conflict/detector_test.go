package conflict

import (
	"reflect"
	"testing"

	"github.com/augv-fleet/supervisor/internal/core"
)

func TestDetectVertexConflict(t *testing.T) {
	assignments := map[string]core.Path{
		"a": {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
		"b": {{X: 4, Y: 0}, {X: 3, Y: 0}, {X: 2, Y: 0}},
	}
	grid := core.NewGrid(5, 5)

	conflicts := Detect(assignments, grid, nil)
	if len(conflicts) != 1 {
		t.Fatalf("expected exactly 1 vertex conflict, got %d: %v", len(conflicts), conflicts)
	}
	c := conflicts[0]
	if c.Kind != core.ConflictVertex {
		t.Fatalf("expected Vertex, got %v", c.Kind)
	}
	if c.Cell != (core.Cell{X: 2, Y: 0}) || c.Step != 3 {
		t.Fatalf("expected collision at (2,0) step 3, got %v step %d", c.Cell, c.Step)
	}
	if len(c.Involved) != 2 || c.Involved[0] != "a" || c.Involved[1] != "b" {
		t.Fatalf("expected involved [a b], got %v", c.Involved)
	}
}

func TestDetectSwapConflict(t *testing.T) {
	assignments := map[string]core.Path{
		"a": {{X: 0, Y: 0}, {X: 1, Y: 0}},
		"b": {{X: 1, Y: 0}, {X: 0, Y: 0}},
	}
	grid := core.NewGrid(3, 3)

	conflicts := Detect(assignments, grid, nil)
	var swaps []core.Conflict
	for _, c := range conflicts {
		if c.Kind == core.ConflictSwap {
			swaps = append(swaps, c)
		}
	}
	if len(swaps) != 2 {
		t.Fatalf("expected 2 swap conflict records (one per cell/step), got %d: %v", len(swaps), swaps)
	}
}

func TestDetectNoConflictOnDisjointPaths(t *testing.T) {
	assignments := map[string]core.Path{
		"a": {{X: 0, Y: 0}, {X: 1, Y: 0}},
		"b": {{X: 0, Y: 4}, {X: 1, Y: 4}},
	}
	grid := core.NewGrid(5, 5)
	if conflicts := Detect(assignments, grid, nil); len(conflicts) != 0 {
		t.Fatalf("expected no conflicts, got %v", conflicts)
	}
}

func TestDetectWarehouseExclusion(t *testing.T) {
	grid := core.NewGrid(5, 5)
	anchor := core.Cell{X: 2, Y: 2}
	assignments := map[string]core.Path{
		"docker":  {{X: 2, Y: 1}, {X: 2, Y: 2}}, // current cell (2,1) is Chebyshev 1 from anchor, last cell is anchor
		"crosser": {{X: 2, Y: 3}, {X: 2, Y: 2}, {X: 2, Y: 1}},
	}
	conflicts := Detect(assignments, grid, []core.Cell{anchor})
	found := false
	for _, c := range conflicts {
		if c.Kind == core.ConflictWarehouse {
			found = true
			if c.Step != core.WarehouseSentinelStep {
				t.Fatalf("warehouse conflict should use the sentinel step, got %d", c.Step)
			}
		}
	}
	if !found {
		t.Fatalf("expected a warehouse conflict, got %v", conflicts)
	}
}

func TestDetectOrderingIsDeterministic(t *testing.T) {
	assignments := map[string]core.Path{
		"a": {{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
		"b": {{X: 4, Y: 0}, {X: 3, Y: 0}, {X: 2, Y: 0}},
		"c": {{X: 0, Y: 1}, {X: 1, Y: 1}, {X: 2, Y: 1}},
		"d": {{X: 4, Y: 1}, {X: 3, Y: 1}, {X: 2, Y: 1}},
	}
	grid := core.NewGrid(5, 5)

	first := Detect(assignments, grid, nil)
	for i := 0; i < 10; i++ {
		again := Detect(assignments, grid, nil)
		if len(again) != len(first) {
			t.Fatalf("non-deterministic conflict count across runs")
		}
		for j := range first {
			if !reflect.DeepEqual(again[j], first[j]) {
				t.Fatalf("conflict ordering differs across runs at index %d: %v vs %v", j, again[j], first[j])
			}
		}
	}
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		if a.Step > b.Step {
			t.Fatalf("conflicts not sorted by step: %v before %v", a, b)
		}
	}
}
