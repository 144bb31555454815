// Package mapsrc loads the MapDefinition external interface pinned by the
// core: grid dimensions, per-cell walkability and traversal cost, warehouse
// anchor cells, and a name -> world-position lookup. How the map got
// authored (by hand, exported from an editor) is out of scope; this package
// only owns the YAML file format and the in-process constructor.
package mapsrc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/augv-fleet/supervisor/internal/core"
)

// Definition is the concrete backing for the opaque "MapDefinition" value
// the Supervisor is handed at startup.
type Definition struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Rows is an ASCII rendering of the grid, one string per row (row 0 is
	// y=0), '#' for a blocked cell and any other character for walkable.
	// Per-cell traversal cost defaults to 1 everywhere; use Costs to
	// override individual cells.
	Rows []string `yaml:"rows"`

	// Costs overrides traversal cost for specific cells; anything absent
	// defaults to 1.
	Costs []CellCost `yaml:"costs,omitempty"`

	// Warehouses lists the anchor cells whose 3x3 Chebyshev neighbourhood
	// is exclusive to a docking agent.
	Warehouses []CellCoord `yaml:"warehouses"`

	// Waypoints maps a named target (as used in route-ingestion JSON) to a
	// world position.
	Waypoints map[string]Point `yaml:"waypoints"`
}

// CellCoord is a YAML-friendly integer cell coordinate.
type CellCoord struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
}

// CellCost overrides one cell's traversal cost.
type CellCost struct {
	X    int `yaml:"x"`
	Y    int `yaml:"y"`
	Cost int `yaml:"cost"`
}

// Point is a YAML-friendly world coordinate.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Load reads and parses a Definition from a YAML file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mapsrc: reading %s: %w", path, err)
	}
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("mapsrc: parsing %s: %w", path, err)
	}
	if err := def.Validate(); err != nil {
		return nil, fmt.Errorf("mapsrc: %s: %w", path, err)
	}
	return &def, nil
}

// Validate checks internal consistency: declared dimensions match the ASCII
// rows, and every named waypoint/warehouse falls in bounds.
func (d *Definition) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("width/height must be positive, got %dx%d", d.Width, d.Height)
	}
	if len(d.Rows) != 0 && len(d.Rows) != d.Height {
		return fmt.Errorf("rows has %d entries, want height %d", len(d.Rows), d.Height)
	}
	for y, row := range d.Rows {
		if len(row) != d.Width {
			return fmt.Errorf("row %d has length %d, want width %d", y, len(row), d.Width)
		}
	}
	for _, wh := range d.Warehouses {
		if wh.X < 0 || wh.X >= d.Width || wh.Y < 0 || wh.Y >= d.Height {
			return fmt.Errorf("warehouse %v out of bounds", wh)
		}
	}
	for name, wp := range d.Waypoints {
		if wp.X < 0 || wp.X >= float64(d.Width) || wp.Y < 0 || wp.Y >= float64(d.Height) {
			return fmt.Errorf("waypoint %q at (%g,%g) out of bounds", name, wp.X, wp.Y)
		}
	}
	return nil
}

// Grid builds a *core.Grid from the definition: walkability from Rows
// ('#' blocked, everything else walkable; an empty Rows means everything is
// walkable), traversal cost from Costs.
func (d *Definition) Grid() *core.Grid {
	grid := core.NewGrid(d.Width, d.Height)
	for y, row := range d.Rows {
		for x, ch := range row {
			if ch == '#' {
				grid.SetWalkable(core.Cell{X: x, Y: y}, false)
			}
		}
	}
	for _, c := range d.Costs {
		grid.SetTraversalCost(core.Cell{X: c.X, Y: c.Y}, c.Cost)
	}
	return grid
}

// WarehouseAnchors returns the declared warehouse anchor cells.
func (d *Definition) WarehouseAnchors() []core.Cell {
	out := make([]core.Cell, 0, len(d.Warehouses))
	for _, wh := range d.Warehouses {
		out = append(out, core.Cell{X: wh.X, Y: wh.Y})
	}
	return out
}

// Resolve looks up a named waypoint's world position. The second return
// value is false for unknown names; callers treat that as a per-entry skip
// (core.ErrUnknownReference), not a whole-message failure.
func (d *Definition) Resolve(name string) (core.WorldPoint, bool) {
	p, ok := d.Waypoints[name]
	if !ok {
		return core.WorldPoint{}, false
	}
	return core.WorldPoint{X: p.X, Y: p.Y}, true
}
