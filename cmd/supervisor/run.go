package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/augv-fleet/supervisor/internal/core"
	"github.com/augv-fleet/supervisor/internal/ingest"
	"github.com/augv-fleet/supervisor/internal/mapsrc"
	"github.com/augv-fleet/supervisor/internal/supervisor"
)

var agentFlags []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the tick loop and the route/obstacle TCP listeners",
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringVar(&routeAddrFlag, "route-addr", ":8051", "listen address for route ingestion")
	runCmd.Flags().StringVar(&obstacleAddrFlag, "obstacle-addr", ":8052", "listen address for dynamic-obstacle ingestion")
	runCmd.Flags().StringVar(&tickIntervalFlag, "tick-interval", "200ms", "lockstep tick interval")
	runCmd.Flags().StringArrayVar(&agentFlags, "agent", nil, "seed agent as id@x,y (repeatable)")
}

func runRun(cmd *cobra.Command, args []string) error {
	def, err := mapsrc.Load(mapFlag)
	if err != nil {
		return err
	}
	interval, err := time.ParseDuration(tickIntervalFlag)
	if err != nil {
		return fmt.Errorf("--tick-interval: %w", err)
	}

	grid := def.Grid()
	sup := supervisor.New(grid, def.WarehouseAnchors(), def, supervisor.Config{})

	for _, spec := range agentFlags {
		id, pos, err := parseAgentFlag(spec)
		if err != nil {
			return err
		}
		sup.AddAgent(id, supervisor.NewKinematicHandle(pos))
	}

	routeSrv, err := ingest.NewRouteServer(routeAddrFlag)
	if err != nil {
		return err
	}
	routeSrv.Inbox = sup.RouteInbox()
	routeSrv.Start()
	defer routeSrv.Stop()

	obstacleSrv, err := ingest.NewObstacleServer(obstacleAddrFlag)
	if err != nil {
		return err
	}
	obstacleSrv.Inbox = sup.ObstacleInbox()
	obstacleSrv.Start()
	defer obstacleSrv.Stop()

	logrus.WithFields(logrus.Fields{
		"route_addr": routeAddrFlag, "obstacle_addr": obstacleAddrFlag, "tick_interval": interval,
	}).Info("supervisor: listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			logrus.Info("supervisor: shutting down")
			return nil
		case <-ticker.C:
			sup.Tick()
		case <-sup.Wake():
			sup.Tick()
		}
	}
}

func parseAgentFlag(spec string) (string, core.WorldPoint, error) {
	idPos := strings.SplitN(spec, "@", 2)
	if len(idPos) != 2 {
		return "", core.WorldPoint{}, fmt.Errorf("--agent %q: want id@x,y", spec)
	}
	coords := strings.SplitN(idPos[1], ",", 2)
	if len(coords) != 2 {
		return "", core.WorldPoint{}, fmt.Errorf("--agent %q: want id@x,y", spec)
	}
	x, err := strconv.ParseFloat(coords[0], 64)
	if err != nil {
		return "", core.WorldPoint{}, fmt.Errorf("--agent %q: %w", spec, err)
	}
	y, err := strconv.ParseFloat(coords[1], 64)
	if err != nil {
		return "", core.WorldPoint{}, fmt.Errorf("--agent %q: %w", spec, err)
	}
	return idPos[0], core.WorldPoint{X: x, Y: y}, nil
}
