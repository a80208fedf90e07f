// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/geocode"
	"github.com/jcodagnone/cerca/spatial"
)

type searchOptions struct {
	Lat       float64
	Lon       float64
	Address   string
	Radius    int
	Limit     int
	MinRating float64
	Enrich    bool
	Workers   int
}

var searchOpts = &searchOptions{}

func init() {
	f := searchCmd.Flags()
	f.Float64Var(&searchOpts.Lat, "lat", 0, "Origin latitude")
	f.Float64Var(&searchOpts.Lon, "lon", 0, "Origin longitude")
	f.StringVar(&searchOpts.Address, "address", "", "Origin address, geocoded before searching")
	f.IntVar(&searchOpts.Radius, "radius", 0, "Search radius in meters (default $CERCA_RADIUS or 5000)")
	f.IntVar(&searchOpts.Limit, "limit", 0, "Maximum number of businesses printed")
	f.Float64Var(&searchOpts.MinRating, "min-rating", -1, "Minimum rating on a 0-5 scale, implies --enrich (default $CERCA_MIN_RATING when enriching)")
	f.BoolVar(&searchOpts.Enrich, "enrich", false, "Rate businesses with Foursquare")
	f.IntVar(&searchOpts.Workers, "workers", 0, "Concurrent rating lookups (default $CERCA_WORKERS or 4)")

	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search [category]",
	Short: "Search businesses around a location",
	Long: `
Search businesses of a category around a location. The category is free text
("chemist", "keke stand", "coffee") resolved against the built in taxonomy.

The origin is taken from --lat/--lon, then --address, and finally from the
network origin of this machine.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newComponents()
		if err != nil {
			return err
		}
		defer c.Close()

		ctx := cmd.Context()

		origin, err := resolveOrigin(ctx, c.locator, cmd.Flags().Changed("lat") || cmd.Flags().Changed("lon"))
		if err != nil {
			return err
		}

		rawCategory := config.Category
		if len(args) > 0 {
			rawCategory = args[0]
		}

		radius := config.Radius
		if searchOpts.Radius > 0 {
			radius = searchOpts.Radius
		}

		workers := config.Workers
		if searchOpts.Workers > 0 {
			workers = searchOpts.Workers
		}

		req := discovery.Request{
			Origin:   origin.Point,
			Category: rawCategory,
			Radius:   radius,
			Enrich:   searchOpts.Enrich || searchOpts.MinRating >= 0,
			Workers:  workers,
			OnEnrich: enrichProgress,
		}

		if req.Enrich {
			if err := ValidateFoursquareKey(config.FoursquareKey); err != nil {
				return err
			}

			minRating := config.MinRating
			if searchOpts.MinRating >= 0 {
				minRating = searchOpts.MinRating
			}

			req.MinRating = &minRating
		}

		res := c.finder.Discover(ctx, req)
		if res.Err != nil {
			return searchError(c, rawCategory, res.Err)
		}

		logger.Info("Search complete",
			"category", res.Query.Category,
			"found", len(res.Businesses),
			"skipped", res.Skipped,
			"duplicates", res.Duplicates,
			"cached", res.Cached,
		)

		businesses := res.Businesses
		if searchOpts.Limit > 0 && len(businesses) > searchOpts.Limit {
			businesses = businesses[:searchOpts.Limit]
		}

		if globalOptions.JSON {
			return printJSON(os.Stdout, map[string]any{
				"origin":     origin,
				"query":      res.Query,
				"businesses": businesses,
				"skipped":    res.Skipped,
			})
		}

		fmt.Printf("%s near %s\n", res.Query.Category, describeOrigin(origin))
		printBusinesses(os.Stdout, businesses)

		return nil
	},
}

func resolveOrigin(ctx context.Context, locator *geocode.Resolver, hasDevice bool) (*geocode.Result, error) {
	if hasDevice {
		device := spatial.Point{Lat: searchOpts.Lat, Lng: searchOpts.Lon}
		return locator.Locate(ctx, &device, "")
	}

	if searchOpts.Address != "" {
		return locator.ResolveAddress(ctx, searchOpts.Address)
	}

	return locator.Locate(ctx, nil, "")
}

func searchError(c *components, rawCategory string, err error) error {
	if !errors.Is(err, discovery.ErrUnknownCategory) {
		return err
	}

	suggestions := c.categories.Suggest(rawCategory, 3)
	if len(suggestions) == 0 {
		return err
	}

	paths := make([]string, 0, len(suggestions))
	for _, m := range suggestions {
		paths = append(paths, m.Path)
	}

	return fmt.Errorf("%w (did you mean %s?)", err, strings.Join(paths, ", "))
}

// enrichProgress drives a progress bar when stderr is a terminal.
func enrichProgress(total int) func() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logger.Info("Rating businesses", "count", total)
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Rating businesses"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	return func() {
		if err := bar.Add(1); err != nil {
			logger.Debug("Updating progress bar", "error", err)
		}
	}
}

func describeOrigin(origin *geocode.Result) string {
	if origin.DisplayName != "" {
		return fmt.Sprintf("%s (%s)", origin.DisplayName, origin.Point.LatLon())
	}

	return origin.Point.LatLon()
}

func printBusinesses(w io.Writer, businesses []*discovery.Business) {
	if len(businesses) == 0 {
		fmt.Fprintln(w, "No businesses found.")
		return
	}

	a, b, c, d, e := strings.Repeat("─", 2), strings.Repeat("─", 32), strings.Repeat("─", 8), strings.Repeat("─", 6), strings.Repeat("─", 40)
	fmt.Fprintf(w, "╭─%2s─┬─%-32s─┬─%8s─┬─%6s─┬─%-40s╮\n", a, b, c, d, e)
	fmt.Fprintf(w, "│ %2s │ %-32s │ %8s │ %6s │ %-40s│\n", "#", "Name", "Distance", "Rating", "Address")
	fmt.Fprintf(w, "├─%2s─┼─%-32s─┼─%8s─┼─%6s─┼─%-40s┤\n", a, b, c, d, e)

	for i, bz := range businesses {
		rating := "-"
		if stars := bz.Stars(); stars != nil {
			rating = fmt.Sprintf("%.1f", *stars)
		}

		fmt.Fprintf(w, "│ %2d │ %-32s │ %8s │ %6s │ %-40s│\n",
			i+1, truncate(bz.Name, 32), formatDistance(bz.Distance), rating, truncate(bz.Address, 40))
	}

	fmt.Fprintf(w, "╰─%2s─┴─%-32s─┴─%8s─┴─%6s─┴─%-40s╯\n", a, b, c, d, e)
}

func formatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}

	return fmt.Sprintf("%.1f km", meters/1000)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}

	return string(r[:n-1]) + "…"
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}
