// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcodagnone/cerca/category"
	"github.com/jcodagnone/cerca/spatial"
	"github.com/jcodagnone/cerca/utils/httputils"
)

const pharmaciesResponse = `{"type":"FeatureCollection","features":[
	{"properties":{"name":"Far Pharmacy","formatted":"Opebi Rd","distance":900,"categories":["healthcare.pharmacy"]},
	 "geometry":{"coordinates":[3.3578,6.5966]}},
	{"properties":{"name":"Near Pharmacy","formatted":"Allen Ave","distance":120,"categories":["healthcare.pharmacy"]},
	 "geometry":{"coordinates":[3.3515,6.6018]}},
	{"properties":{"name":"Near Pharmacy","formatted":"Allen Ave","distance":121,"categories":["healthcare.pharmacy"]},
	 "geometry":{"coordinates":[3.3515,6.6018]}},
	{"properties":{"name":"No Geometry"}},
	{"properties":{"name":"Computed","categories":["healthcare.pharmacy"]},
	 "geometry":{"coordinates":[3.3800,6.5300]}}
]}`

var ikeja = spatial.Point{Lat: 6.6018, Lng: 3.3515}

type placesServer struct {
	calls atomic.Int32
	query atomic.Value
}

func newPlacesServer(t *testing.T, status int, body string) (*placesServer, string) {
	t.Helper()

	ps := &placesServer{}
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		ps.calls.Add(1)
		ps.query.Store(r.URL.Query())

		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})

	return ps, srv.URL
}

func newTestFinder(placesURL string, attempts int, opts FinderOptions) *Finder {
	opts.APIKey = "secret"
	opts.PlacesURL = placesURL

	return NewFinder(newTestClient(attempts), category.NewResolver(nil), opts)
}

func TestSearch(t *testing.T) {
	ps, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)

	res := newTestFinder(placesURL, 1, FinderOptions{}).Search(context.Background(), ikeja, "chemist", 2000)
	require.NoError(t, res.Err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, Query{Origin: ikeja, Category: "healthcare.pharmacy", Radius: 2000, Limit: MaxLimit}, res.Query)
	assert.Equal(t, []string{"Far Pharmacy", "Near Pharmacy", "Near Pharmacy", "Computed"}, names(res.Businesses))
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, res.Duplicates)
	assert.False(t, res.Cached)

	computed := res.Businesses[3]
	assert.InDelta(t, spatial.HaversineDistance(ikeja, computed.Point), computed.Distance, 0.01)
	assert.Equal(t, NoAddress, computed.Address)

	query := ps.query.Load().(url.Values)
	assert.Equal(t, "healthcare.pharmacy", query.Get("categories"))
	assert.Equal(t, "circle:3.3515,6.6018,2000", query.Get("filter"))
	assert.Equal(t, "proximity:3.3515,6.6018", query.Get("bias"))
	assert.Equal(t, "secret", query.Get("apiKey"))
}

const atmsResponse = `{"features":[
	{"properties":{"name":"Access Bank ATM","formatted":"Shop 1, Ikeja City Mall","categories":["commercial.atm"]},
	 "geometry":{"coordinates":[3.35150,6.60180]}},
	{"properties":{"name":"Access Bank ATM","formatted":"Shop 14, Ikeja City Mall","categories":["commercial.atm"]},
	 "geometry":{"coordinates":[3.35150,6.60180]}}
]}`

func TestSearchKeepsSameNamePlaces(t *testing.T) {
	for _, dedupe := range []bool{false, true} {
		t.Run(fmt.Sprintf("dedupe=%t", dedupe), func(t *testing.T) {
			_, placesURL := newPlacesServer(t, http.StatusOK, atmsResponse)

			res := newTestFinder(placesURL, 1, FinderOptions{Dedupe: dedupe}).Search(context.Background(), ikeja, "atm", 1000)
			require.NoError(t, res.Err)

			require.Len(t, res.Businesses, 2)
			assert.Equal(t, "Shop 1, Ikeja City Mall", res.Businesses[0].Address)
			assert.Equal(t, "Shop 14, Ikeja City Mall", res.Businesses[1].Address)
			assert.Zero(t, res.Duplicates)
		})
	}
}

func TestSearchDedupe(t *testing.T) {
	_, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)

	res := newTestFinder(placesURL, 1, FinderOptions{Dedupe: true}).Search(context.Background(), ikeja, "pharmacy", 2000)
	require.NoError(t, res.Err)

	assert.Equal(t, []string{"Far Pharmacy", "Near Pharmacy", "Computed"}, names(res.Businesses))
	assert.Equal(t, 1, res.Duplicates)
	assert.Equal(t, 120.0, res.Businesses[1].Distance, "the first record wins")
}

func TestSearchZeroFeatures(t *testing.T) {
	for _, body := range []string{`{"features":[]}`, `{"type":"FeatureCollection"}`} {
		_, placesURL := newPlacesServer(t, http.StatusOK, body)

		res := newTestFinder(placesURL, 1, FinderOptions{}).Search(context.Background(), ikeja, "restaurant", 0)
		require.NoError(t, res.Err)
		assert.Empty(t, res.Businesses)
		assert.NotNil(t, res.Businesses)
		assert.Equal(t, StateDone, res.State)
		assert.Equal(t, DefaultRadius, res.Query.Radius)
	}
}

func TestSearchInputErrors(t *testing.T) {
	ps, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)
	f := newTestFinder(placesURL, 1, FinderOptions{})

	res := f.Search(context.Background(), ikeja, "xyzzy", 1000)
	assert.ErrorIs(t, res.Err, ErrUnknownCategory)
	assert.ErrorIs(t, res.Err, category.ErrNotFound)
	assert.Equal(t, StateBuildQuery, res.State)
	assert.Empty(t, res.Businesses)

	res = f.Search(context.Background(), spatial.Point{Lat: 95, Lng: 3}, "pharmacy", 1000)
	assert.ErrorIs(t, res.Err, ErrInvalidOrigin)
	assert.Equal(t, StateBuildQuery, res.State)

	assert.Zero(t, ps.calls.Load())
}

func TestSearchProviderFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantCalls int32
		check     func(error) bool
	}{
		{"exhausted", http.StatusServiceUnavailable, `{}`, 3, httputils.IsExhausted},
		{"unauthorized", http.StatusUnauthorized, `{"message":"Invalid apiKey"}`, 1, httputils.IsPermanent},
		{"malformed", http.StatusOK, `{"features":{}}`, 1, httputils.IsPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, placesURL := newPlacesServer(t, tt.status, tt.body)

			res := newTestFinder(placesURL, 3, FinderOptions{}).Search(context.Background(), ikeja, "pharmacy", 1000)
			require.Error(t, res.Err)
			assert.True(t, tt.check(res.Err), "%v", res.Err)
			assert.Equal(t, StateFailed, res.State)
			assert.Empty(t, res.Businesses)
			assert.Equal(t, tt.wantCalls, ps.calls.Load())
		})
	}
}

func TestSearchCache(t *testing.T) {
	ps, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)
	f := newTestFinder(placesURL, 1, FinderOptions{Cache: NewMemoryCache(10, time.Minute)})

	first := f.Search(context.Background(), ikeja, "pharmacy", 2000)
	require.NoError(t, first.Err)

	second := f.Search(context.Background(), ikeja, "pharmacy", 2000)
	require.NoError(t, second.Err)
	assert.True(t, second.Cached)
	assert.Equal(t, names(first.Businesses), names(second.Businesses))
	assert.Equal(t, first.Skipped, second.Skipped)
	assert.Equal(t, int32(1), ps.calls.Load())

	second.Businesses[0].Name = "changed"
	third := f.Search(context.Background(), ikeja, "pharmacy", 2000)
	assert.Equal(t, "Far Pharmacy", third.Businesses[0].Name, "cached entries are not shared")

	moved := spatial.Point{Lat: ikeja.Lat + 0.0001, Lng: ikeja.Lng}
	f.Search(context.Background(), moved, "pharmacy", 2000)
	assert.Equal(t, int32(2), ps.calls.Load(), "different origins never share an entry")
}

func TestDiscover(t *testing.T) {
	_, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)

	ratingsSrv := newTestServer(t, ratingsHandler(t, map[string]*float64{
		"Far Pharmacy":  ptr(9),
		"Near Pharmacy": ptr(6),
		"Computed":      ptr(8.2),
	}, nil))

	enricher := NewEnricher(newTestClient(1), ratingsSrv.URL, nil)
	f := newTestFinder(placesURL, 1, FinderOptions{Enricher: enricher, Dedupe: true})

	var total int

	var progressed atomic.Int32

	minRating := 4.0
	res := f.Discover(context.Background(), Request{
		Origin:    ikeja,
		Category:  "pharmacy",
		Radius:    2000,
		Enrich:    true,
		Workers:   2,
		MinRating: &minRating,
		OnEnrich: func(n int) func() {
			total = n
			return func() { progressed.Add(1) }
		},
	})
	require.NoError(t, res.Err)

	assert.Equal(t, StateDone, res.State)
	assert.Equal(t, 3, total)
	assert.Equal(t, int32(3), progressed.Load())
	assert.Equal(t, EnrichStats{Rated: 3}, res.Enriched)

	require.Equal(t, []string{"Far Pharmacy", "Computed"}, names(res.Businesses))
	assert.LessOrEqual(t, res.Businesses[0].Distance, res.Businesses[1].Distance)
}

func TestDiscoverWithoutFilter(t *testing.T) {
	_, placesURL := newPlacesServer(t, http.StatusOK, pharmaciesResponse)

	res := newTestFinder(placesURL, 1, FinderOptions{Dedupe: true}).Discover(context.Background(), Request{
		Origin:   ikeja,
		Category: "pharmacy",
		Enrich:   true,
	})
	require.NoError(t, res.Err)

	assert.Equal(t, []string{"Near Pharmacy", "Far Pharmacy", "Computed"}, names(res.Businesses))
}

func TestDiscoverFailure(t *testing.T) {
	_, placesURL := newPlacesServer(t, http.StatusBadRequest, `{}`)

	res := newTestFinder(placesURL, 1, FinderOptions{}).Discover(context.Background(), Request{Origin: ikeja, Category: "pharmacy"})
	assert.Error(t, res.Err)
	assert.Equal(t, StateFailed, res.State)
	assert.Empty(t, res.Businesses)
}
