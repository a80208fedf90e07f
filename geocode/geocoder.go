// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"net/url"

	"github.com/jcodagnone/cerca/spatial"
)

var (
	// ErrNotFound is returned when no provider produced a usable position.
	ErrNotFound = errors.New("location not found")
	// ErrInvalidAddress is returned for address text too short to geocode.
	ErrInvalidAddress = errors.New("invalid address")
)

// Source names the origin of a Result.
type Source string

const (
	SourceDevice  Source = "device"
	SourceAddress Source = "geoapify_geocode"
	SourceIPInfo  Source = "geoapify_ipinfo"
	SourceGeoIP   Source = "geoip2"
)

// Result represents a resolved position from any provider.
type Result struct {
	Point       spatial.Point `json:"point"`
	DisplayName string        `json:"display_name,omitempty"`
	Source      Source        `json:"source"`
}

// Getter is the part of httputils.Client the providers depend on.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values, out any) error
}

// Geocoder turns free-form address text into a position.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*Result, error)
}

// NetworkLocator estimates a position from the caller's network origin.
// An empty ip means the address the provider sees.
type NetworkLocator interface {
	LocateIP(ctx context.Context, ip string) (*Result, error)
}
