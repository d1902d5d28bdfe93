package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/graphium/internal/utilities"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var routeCmd = &cobra.Command{
	Use:   "route [graph]",
	Short: "Compute a route between two points",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRoute,
}

func init() {
	routeCmd.Flags().String("from", "", "Start as lon,lat (required)")
	routeCmd.Flags().String("to", "", "End as lon,lat (required)")
	routeCmd.Flags().String("version", "", "Graph version (defaults to current)")
	routeCmd.Flags().String("mode", "CAR", "Routing mode")
	routeCmd.Flags().String("criteria", "LENGTH", "Cost criteria")
	routeCmd.Flags().String("time", "", "Departure time, RFC 3339 (defaults to now)")
	routeCmd.Flags().Bool("json", false, "Print the route as JSON")
	routeCmd.MarkFlagRequired("from")
	routeCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(routeCmd)
}

func parseCoord(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("coordinate %q: want lon,lat", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("coordinate %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("coordinate %q: %w", s, err)
	}
	return x, y, nil
}

func runRoute(cmd *cobra.Command, args []string) error {
	graph, err := graphArg(args)
	if err != nil {
		return err
	}
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	req := utilities.RouteRequest{Graph: graph}
	if req.StartX, req.StartY, err = parseCoord(from); err != nil {
		return err
	}
	if req.EndX, req.EndY, err = parseCoord(to); err != nil {
		return err
	}
	req.Version, _ = cmd.Flags().GetString("version")
	req.Mode, _ = cmd.Flags().GetString("mode")
	req.Criteria, _ = cmd.Flags().GetString("criteria")
	if ts, _ := cmd.Flags().GetString("time"); ts != "" {
		if req.When, err = time.Parse(time.RFC3339, ts); err != nil {
			return fmt.Errorf("--time: %w", err)
		}
	}

	c, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	route, err := utilities.NewAPI(c).Route(cmd.Context(), req)
	if err != nil {
		return err
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(route)
	}

	fmt.Printf("Graph:    %s/%s\n", route.GraphName, route.GraphVersion)
	fmt.Printf("Length:   %s m\n", humanize.CommafWithDigits(route.Length, 1))
	fmt.Printf("Duration: %s\n", time.Duration(route.Duration*float64(time.Second)).Round(time.Second))
	fmt.Printf("Segments: %d\n", len(route.Segments))
	fmt.Printf("Runtime:  %d ms\n", route.RuntimeInMs)
	return nil
}
