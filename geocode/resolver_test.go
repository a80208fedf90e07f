// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/oschwald/geoip2-golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/cerca/spatial"
)

type fakeGeocoder struct {
	calls []string
	res   *Result
	err   error
}

func (f *fakeGeocoder) Geocode(_ context.Context, text string) (*Result, error) {
	f.calls = append(f.calls, text)
	return f.res, f.err
}

type fakeLocator struct {
	calls int
	res   *Result
	err   error
}

func (f *fakeLocator) LocateIP(context.Context, string) (*Result, error) {
	f.calls++
	return f.res, f.err
}

type fakeCityReader struct {
	record *geoip2.City
	err    error
}

func (f fakeCityReader) City(net.IP) (*geoip2.City, error) {
	return f.record, f.err
}

var lagos = spatial.Point{Lat: 6.5244, Lng: 3.3792}

func TestResolveAddress(t *testing.T) {
	geocoder := &fakeGeocoder{res: &Result{Point: lagos, Source: SourceAddress}}
	r := NewResolver(geocoder)

	t.Run("too short", func(t *testing.T) {
		for _, text := range []string{"", " ", "a", "  b  "} {
			_, err := r.ResolveAddress(context.Background(), text)
			assert.ErrorIs(t, err, ErrInvalidAddress, "text %q", text)
		}

		assert.Empty(t, geocoder.calls)
	})

	t.Run("trimmed before geocoding", func(t *testing.T) {
		res, err := r.ResolveAddress(context.Background(), "  Ikeja, Lagos ")
		require.NoError(t, err)
		assert.Equal(t, lagos, res.Point)
		assert.Equal(t, []string{"Ikeja, Lagos"}, geocoder.calls)
	})

	t.Run("two characters accepted", func(t *testing.T) {
		_, err := r.ResolveAddress(context.Background(), "Ab")
		assert.NoError(t, err)
	})
}

func TestResolveByNetworkOrigin(t *testing.T) {
	abuja := &Result{Point: spatial.Point{Lat: 9.0579, Lng: 7.4951}, Source: SourceIPInfo}
	transport := errors.New("connection reset")

	t.Run("first locator wins", func(t *testing.T) {
		first := &fakeLocator{res: abuja}
		second := &fakeLocator{err: transport}
		r := NewResolver(&fakeGeocoder{}, WithNetworkLocator(first), WithNetworkLocator(second))

		res, err := r.ResolveByNetworkOrigin(context.Background(), "102.89.1.1")
		require.NoError(t, err)
		assert.Equal(t, abuja, res)
		assert.Equal(t, 0, second.calls)
	})

	t.Run("falls through not found", func(t *testing.T) {
		first := &fakeLocator{err: ErrNotFound}
		second := &fakeLocator{res: abuja}
		r := NewResolver(&fakeGeocoder{}, WithNetworkLocator(first), WithNetworkLocator(second))

		res, err := r.ResolveByNetworkOrigin(context.Background(), "")
		require.NoError(t, err)
		assert.Equal(t, abuja, res)
	})

	t.Run("zero position is not found", func(t *testing.T) {
		r := NewResolver(&fakeGeocoder{}, WithNetworkLocator(&fakeLocator{res: &Result{}}))

		_, err := r.ResolveByNetworkOrigin(context.Background(), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("provider failure surfaces", func(t *testing.T) {
		r := NewResolver(&fakeGeocoder{},
			WithNetworkLocator(&fakeLocator{err: ErrNotFound}),
			WithNetworkLocator(&fakeLocator{err: transport}))

		_, err := r.ResolveByNetworkOrigin(context.Background(), "")
		assert.ErrorIs(t, err, transport)
	})

	t.Run("no locators", func(t *testing.T) {
		_, err := NewResolver(&fakeGeocoder{}).ResolveByNetworkOrigin(context.Background(), "")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestLocate(t *testing.T) {
	network := &Result{Point: spatial.Point{Lat: 9.0579, Lng: 7.4951}, Source: SourceIPInfo}

	tests := []struct {
		name       string
		device     *spatial.Point
		want       *Result
		wantErr    bool
		wantLookup bool
	}{
		{name: "device reading", device: &lagos, want: &Result{Point: lagos, Source: SourceDevice}},
		{name: "no device", want: network, wantLookup: true},
		{name: "degenerate device", device: &spatial.Point{}, want: network, wantLookup: true},
		{name: "invalid device", device: &spatial.Point{Lat: 91, Lng: 3}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			locator := &fakeLocator{res: network}
			r := NewResolver(&fakeGeocoder{}, WithNetworkLocator(locator))

			res, err := r.Locate(context.Background(), tt.device, "102.89.1.1")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.wantLookup, locator.calls == 1)
		})
	}
}

func TestGeoIPLocator(t *testing.T) {
	record := &geoip2.City{}
	record.Location.Latitude = 6.4541
	record.Location.Longitude = 3.3947
	record.City.Names = map[string]string{"en": "Lagos"}
	record.Country.Names = map[string]string{"en": "Nigeria"}

	l := NewGeoIPLocator(fakeCityReader{record: record})

	res, err := l.LocateIP(context.Background(), "102.89.1.1")
	require.NoError(t, err)
	assert.Equal(t, &Result{
		Point:       spatial.Point{Lat: 6.4541, Lng: 3.3947},
		DisplayName: "Lagos, Nigeria",
		Source:      SourceGeoIP,
	}, res)

	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "192.168.1.10", "::1"} {
		_, err := l.LocateIP(context.Background(), ip)
		assert.ErrorIs(t, err, ErrNotFound, "ip %q", ip)
	}

	_, err = NewGeoIPLocator(fakeCityReader{record: &geoip2.City{}}).LocateIP(context.Background(), "8.8.8.8")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, l.Close())
}
