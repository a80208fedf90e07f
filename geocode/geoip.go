// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/jcodagnone/cerca/spatial"
)

// CityReader is the subset of *geoip2.Reader used for lookups.
type CityReader interface {
	City(ip net.IP) (*geoip2.City, error)
}

// GeoIPLocator resolves addresses against a local GeoLite2 City database.
type GeoIPLocator struct {
	reader CityReader
	closer func() error
}

// OpenGeoIP opens the MaxMind database at path.
func OpenGeoIP(path string) (*GeoIPLocator, error) {
	reader, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening geoip database %s: %w", path, err)
	}

	return &GeoIPLocator{reader: reader, closer: reader.Close}, nil
}

// NewGeoIPLocator wraps an already opened reader.
func NewGeoIPLocator(reader CityReader) *GeoIPLocator {
	return &GeoIPLocator{reader: reader}
}

// Close releases the database.
func (g *GeoIPLocator) Close() error {
	if g.closer == nil {
		return nil
	}

	return g.closer()
}

// LocateIP looks ip up locally. Private, unparsable and unknown addresses
// yield ErrNotFound.
func (g *GeoIPLocator) LocateIP(_ context.Context, ip string) (*Result, error) {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return nil, fmt.Errorf("%w: unparsable ip %q", ErrNotFound, ip)
	}

	if parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() {
		return nil, fmt.Errorf("%w: non-routable ip %s", ErrNotFound, ip)
	}

	record, err := g.reader.City(parsed)
	if err != nil {
		return nil, fmt.Errorf("geoip lookup %s: %w", ip, err)
	}

	p := spatial.Point{Lat: record.Location.Latitude, Lng: record.Location.Longitude}
	if p.IsZero() {
		return nil, ErrNotFound
	}

	return &Result{
		Point:       p,
		DisplayName: displayName(record.City.Names["en"], record.Country.Names["en"]),
		Source:      SourceGeoIP,
	}, nil
}
