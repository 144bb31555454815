// Command supervisor starts the AGV fleet Supervisor: the tick loop plus
// its route and dynamic-obstacle TCP listeners.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	mapFlag          string
	routeAddrFlag    string
	obstacleAddrFlag string
	tickIntervalFlag string
)

var rootCmd = &cobra.Command{
	Use:           "supervisor",
	Short:         "AGV fleet Supervisor: planner, conflict resolver, lockstep driver",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&mapFlag, "map", "map.yaml", "path to the MapDefinition YAML file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
