package mapsrc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/augv-fleet/supervisor/internal/core"
)

const testMapYAML = `
width: 4
height: 3
rows:
  - "...."
  - ".##."
  - "...."
costs:
  - {x: 0, y: 0, cost: 3}
warehouses:
  - {x: 3, y: 0}
waypoints:
  dock:
    x: 3.0
    y: 0.0
`

func writeTestMap(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "map.yaml")
	if err := os.WriteFile(path, []byte(testMapYAML), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestLoadParsesValidDefinition(t *testing.T) {
	def, err := Load(writeTestMap(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def.Width != 4 || def.Height != 3 {
		t.Fatalf("got %dx%d, want 4x3", def.Width, def.Height)
	}
	if len(def.Warehouses) != 1 {
		t.Fatalf("expected 1 warehouse, got %d", len(def.Warehouses))
	}
}

func TestGridBuildsWalkabilityAndCost(t *testing.T) {
	def, err := Load(writeTestMap(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	grid := def.Grid()

	if grid.Walkable(core.Cell{X: 1, Y: 1}) || grid.Walkable(core.Cell{X: 2, Y: 1}) {
		t.Fatal("'#' cells should be unwalkable")
	}
	if !grid.Walkable(core.Cell{X: 0, Y: 1}) {
		t.Fatal("'.' cells should be walkable")
	}
	if cost := grid.TraversalCost(core.Cell{X: 0, Y: 0}); cost != 3 {
		t.Fatalf("expected overridden cost 3, got %d", cost)
	}
	if cost := grid.TraversalCost(core.Cell{X: 1, Y: 0}); cost != 1 {
		t.Fatalf("expected default cost 1, got %d", cost)
	}
}

func TestResolveLooksUpWaypoints(t *testing.T) {
	def, err := Load(writeTestMap(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pos, ok := def.Resolve("dock")
	if !ok || pos != (core.WorldPoint{X: 3, Y: 0}) {
		t.Fatalf("expected (3,0), got %v ok=%v", pos, ok)
	}
	if _, ok := def.Resolve("nope"); ok {
		t.Fatal("unknown waypoint should resolve false")
	}
}

func TestValidateRejectsMismatchedRows(t *testing.T) {
	def := &Definition{Width: 4, Height: 2, Rows: []string{"...."}}
	if err := def.Validate(); err == nil {
		t.Fatal("expected an error for rows/height mismatch")
	}
}

func TestValidateRejectsOutOfBoundsWarehouse(t *testing.T) {
	def := &Definition{Width: 2, Height: 2, Warehouses: []CellCoord{{X: 5, Y: 5}}}
	if err := def.Validate(); err == nil {
		t.Fatal("expected an error for an out-of-bounds warehouse")
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
