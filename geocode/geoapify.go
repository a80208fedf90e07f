// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/jcodagnone/cerca/spatial"
	"github.com/jcodagnone/cerca/utils/httputils"
)

const (
	DefaultGeocodeURL = "https://api.geoapify.com/v1/geocode/search"
	DefaultIPInfoURL  = "https://api.geoapify.com/v1/ipinfo"
)

// GeoapifyGeocoder uses the Geoapify geocoding and IP info APIs.
type GeoapifyGeocoder struct {
	apiKey     string
	client     Getter
	geocodeURL string
	ipInfoURL  string
}

// NewGeoapifyGeocoder creates a geocoder bound to apiKey. Empty URLs select
// the public endpoints.
func NewGeoapifyGeocoder(client Getter, apiKey, geocodeURL, ipInfoURL string) *GeoapifyGeocoder {
	if geocodeURL == "" {
		geocodeURL = DefaultGeocodeURL
	}

	if ipInfoURL == "" {
		ipInfoURL = DefaultIPInfoURL
	}

	return &GeoapifyGeocoder{
		apiKey:     apiKey,
		client:     client,
		geocodeURL: geocodeURL,
		ipInfoURL:  ipInfoURL,
	}
}

type geocodeResponse struct {
	Results []struct {
		Lat       *float64 `json:"lat"`
		Lon       *float64 `json:"lon"`
		Formatted string   `json:"formatted"`
	} `json:"results"`
}

type ipInfoResponse struct {
	IP   string `json:"ip"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	Country struct {
		Name string `json:"name"`
	} `json:"country"`
	Location *struct {
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	} `json:"location"`
}

// Geocode resolves text to the first match.
func (g *GeoapifyGeocoder) Geocode(ctx context.Context, text string) (*Result, error) {
	params := url.Values{}
	params.Set("text", text)
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("apiKey", g.apiKey)

	var resp geocodeResponse
	if err := g.client.Get(ctx, g.geocodeURL, params, &resp); err != nil {
		return nil, providerError("geocoding", err)
	}

	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}

	first := resp.Results[0]
	if first.Lat == nil || first.Lon == nil {
		return nil, fmt.Errorf("%w: result without coordinates", ErrNotFound)
	}

	p := spatial.Point{Lat: *first.Lat, Lng: *first.Lon}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return &Result{Point: p, DisplayName: first.Formatted, Source: SourceAddress}, nil
}

// LocateIP asks Geoapify where ip is. With an empty ip the provider uses
// the address of the request itself.
func (g *GeoapifyGeocoder) LocateIP(ctx context.Context, ip string) (*Result, error) {
	params := url.Values{}
	params.Set("apiKey", g.apiKey)

	if ip != "" {
		params.Set("ip", ip)
	}

	var resp ipInfoResponse
	if err := g.client.Get(ctx, g.ipInfoURL, params, &resp); err != nil {
		return nil, providerError("ip lookup", err)
	}

	if resp.Location == nil || resp.Location.Latitude == nil || resp.Location.Longitude == nil {
		return nil, ErrNotFound
	}

	p := spatial.Point{Lat: *resp.Location.Latitude, Lng: *resp.Location.Longitude}
	if p.IsZero() {
		return nil, ErrNotFound
	}

	return &Result{Point: p, DisplayName: displayName(resp.City.Name, resp.Country.Name), Source: SourceIPInfo}, nil
}

// providerError maps undecodable payloads to ErrNotFound and wraps the rest.
func providerError(op string, err error) error {
	if errors.Is(err, httputils.ErrMalformedResponse) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}

func displayName(city, country string) string {
	switch {
	case city != "" && country != "":
		return city + ", " + country
	case city != "":
		return city
	default:
		return country
	}
}
