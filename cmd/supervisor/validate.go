package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/augv-fleet/supervisor/internal/mapsrc"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load a MapDefinition file and report errors",
	RunE: func(cmd *cobra.Command, args []string) error {
		def, err := mapsrc.Load(mapFlag)
		if err != nil {
			return err
		}
		fmt.Printf("ok: %dx%d grid, %d warehouse anchors, %d named waypoints\n",
			def.Width, def.Height, len(def.Warehouses), len(def.Waypoints))
		return nil
	},
}
