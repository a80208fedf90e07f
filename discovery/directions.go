// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jcodagnone/cerca/spatial"
)

// DefaultRoutingURL is the Geoapify routing endpoint.
const DefaultRoutingURL = "https://api.geoapify.com/v1/routing"

// ErrNoRoute is returned when the provider finds no route between the points.
var ErrNoRoute = errors.New("no route found")

// Mode is a travel mode understood by the routing provider.
type Mode string

const (
	ModeDrive   Mode = "drive"
	ModeWalk    Mode = "walk"
	ModeBicycle Mode = "bicycle"
	ModeTransit Mode = "transit"
)

// DefaultMode is used when no travel mode is requested.
const DefaultMode = ModeWalk

// ParseMode validates s as a travel mode.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModeDrive, ModeWalk, ModeBicycle, ModeTransit:
		return m, nil
	case "":
		return DefaultMode, nil
	default:
		return "", fmt.Errorf("unsupported travel mode %q", s)
	}
}

// Route is a turn by turn itinerary. Distance is in meters and Duration in
// seconds.
type Route struct {
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
	Steps    []string `json:"steps"`
}

// Router asks the routing provider for directions.
type Router struct {
	client Getter
	apiKey string
	url    string
}

// NewRouter creates a Router. An empty routingURL selects DefaultRoutingURL.
func NewRouter(client Getter, apiKey, routingURL string) *Router {
	if routingURL == "" {
		routingURL = DefaultRoutingURL
	}

	return &Router{client: client, apiKey: apiKey, url: routingURL}
}

type routingResponse struct {
	Features []struct {
		Properties struct {
			Distance float64 `json:"distance"`
			Time     float64 `json:"time"`
			Legs     []struct {
				Steps []struct {
					Instruction struct {
						Text string `json:"text"`
					} `json:"instruction"`
				} `json:"steps"`
			} `json:"legs"`
		} `json:"properties"`
	} `json:"features"`
}

// Directions returns the route from one point to another.
func (r *Router) Directions(ctx context.Context, from, to spatial.Point, mode Mode) (*Route, error) {
	if mode == "" {
		mode = DefaultMode
	}

	params := url.Values{}
	params.Set("waypoints", from.LatLon()+"|"+to.LatLon())
	params.Set("mode", string(mode))
	params.Set("apiKey", r.apiKey)

	var resp routingResponse
	if err := r.client.Get(ctx, r.url, params, &resp); err != nil {
		return nil, fmt.Errorf("routing: %w", err)
	}

	if len(resp.Features) == 0 {
		return nil, ErrNoRoute
	}

	props := resp.Features[0].Properties
	route := &Route{Distance: props.Distance, Duration: props.Time, Steps: []string{}}

	for _, leg := range props.Legs {
		for _, step := range leg.Steps {
			if step.Instruction.Text != "" {
				route.Steps = append(route.Steps, step.Instruction.Text)
			}
		}
	}

	return route, nil
}
