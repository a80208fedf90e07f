// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/spatial"
)

var directionsMode string

var directionsCmd = &cobra.Command{
	Use:   "directions <from lat,lon> <to lat,lon>",
	Short: "Print turn by turn directions between two points",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseLatLon(args[0])
		if err != nil {
			return err
		}

		to, err := parseLatLon(args[1])
		if err != nil {
			return err
		}

		mode, err := discovery.ParseMode(directionsMode)
		if err != nil {
			return err
		}

		c, err := newComponents()
		if err != nil {
			return err
		}
		defer c.Close()

		route, err := c.router.Directions(cmd.Context(), from, to, mode)
		if err != nil {
			return err
		}

		if globalOptions.JSON {
			return printJSON(cmd.OutOrStdout(), route)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s, about %.0f min by %s\n", formatDistance(route.Distance), route.Duration/60, mode)

		for i, step := range route.Steps {
			fmt.Fprintf(out, "%3d. %s\n", i+1, step)
		}

		return nil
	},
}

// parseLatLon parses "lat,lon".
func parseLatLon(s string) (spatial.Point, error) {
	latStr, lonStr, ok := strings.Cut(s, ",")
	if !ok {
		return spatial.Point{}, fmt.Errorf("expected lat,lon, got %q", s)
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid latitude %q: %w", latStr, err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil {
		return spatial.Point{}, fmt.Errorf("invalid longitude %q: %w", lonStr, err)
	}

	p := spatial.Point{Lat: lat, Lng: lon}

	return p, p.Validate()
}

func init() {
	directionsCmd.Flags().StringVar(&directionsMode, "mode", string(discovery.DefaultMode), "Travel mode: drive, walk, bicycle or transit")
	rootCmd.AddCommand(directionsCmd)
}
