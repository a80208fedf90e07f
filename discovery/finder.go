// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jcodagnone/cerca/category"
	"github.com/jcodagnone/cerca/metrics"
	"github.com/jcodagnone/cerca/spatial"
	"github.com/jcodagnone/cerca/utils/httputils"
)

// DefaultPlacesURL is the Geoapify places endpoint.
const DefaultPlacesURL = "https://api.geoapify.com/v2/places"

var (
	// ErrUnknownCategory is returned when the category text matches nothing
	// in the taxonomy.
	ErrUnknownCategory = errors.New("unknown category")
	// ErrInvalidOrigin is returned for an origin outside the WGS84 ranges.
	ErrInvalidOrigin = errors.New("invalid origin")
)

// Getter is the part of httputils.Client the providers depend on.
type Getter interface {
	Get(ctx context.Context, rawURL string, params url.Values, out any) error
}

// Result is the outcome of a search. Err is set when the search failed, in
// which case Businesses is empty. State is the last state reached: input
// errors stop at StateBuildQuery, provider errors at StateFailed.
type Result struct {
	Query      Query       `json:"query"`
	Businesses []*Business `json:"businesses"`
	Skipped    int         `json:"skipped"`
	Duplicates int         `json:"duplicates"`
	Enriched   EnrichStats `json:"-"`
	Cached     bool        `json:"cached"`
	State      State       `json:"state"`
	Err        error       `json:"-"`
}

// FinderOptions configures a Finder.
type FinderOptions struct {
	APIKey    string
	PlacesURL string
	Limit     int
	Cache     Cache
	Enricher  *Enricher
	Logger    *slog.Logger
	// Dedupe collapses records of the same place reported more than once.
	Dedupe bool
}

// Finder runs searches against the places provider.
type Finder struct {
	client     Getter
	categories *category.Resolver
	options    FinderOptions
	logger     *slog.Logger
}

// NewFinder creates a Finder. A nil resolver uses the default taxonomy.
func NewFinder(client Getter, categories *category.Resolver, options FinderOptions) *Finder {
	if categories == nil {
		categories = category.NewResolver(nil)
	}

	if options.PlacesURL == "" {
		options.PlacesURL = DefaultPlacesURL
	}

	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Finder{client: client, categories: categories, options: options, logger: logger}
}

type placesResponse struct {
	Features []json.RawMessage `json:"features"`
}

type cachedSearch struct {
	Businesses []*Business `json:"businesses"`
	Skipped    int         `json:"skipped"`
	Duplicates int         `json:"duplicates"`
}

// Search looks for businesses of rawCategory within radius meters of origin.
// It never panics on provider data: failures are reported in Result.Err.
func (f *Finder) Search(ctx context.Context, origin spatial.Point, rawCategory string, radius int) Result {
	res := Result{State: StateBuildQuery, Businesses: []*Business{}}

	if err := origin.Validate(); err != nil {
		return f.finish(res, fmt.Errorf("%w: %w", ErrInvalidOrigin, err))
	}

	path, err := f.categories.Resolve(rawCategory)
	if err != nil {
		return f.finish(res, fmt.Errorf("%w %q: %w", ErrUnknownCategory, rawCategory, err))
	}

	res.Query = Query{Origin: origin, Category: path, Radius: radius, Limit: f.options.Limit}.normalized()
	log := f.logger.With("category", path, "origin", origin.LatLon(), "radius", res.Query.Radius)

	key := CacheKey(origin, path, res.Query.Radius)
	if f.options.Dedupe {
		key += ":dedupe"
	}

	if cached, ok := f.lookup(ctx, key, log); ok {
		res.Businesses = cached.Businesses
		res.Skipped = cached.Skipped
		res.Duplicates = cached.Duplicates
		res.Cached = true
		res.State = StateDone

		return f.finish(res, nil)
	}

	res.State = StateDispatch
	log.Debug("Dispatching places search", "state", res.State)

	var resp placesResponse
	if err := f.client.Get(ctx, f.options.PlacesURL, BuildParams(res.Query, f.options.APIKey), &resp); err != nil {
		if errors.Is(err, httputils.ErrMalformedResponse) {
			res.State = StateParse
			return f.finish(res, fmt.Errorf("parsing places response: %w", err))
		}

		return f.finish(res, fmt.Errorf("searching places: %w", err))
	}

	res.State = StateParse

	businesses, skipped := ParseFeatures(resp.Features, origin)
	for _, rerr := range skipped {
		log.Warn("Skipping place record", "index", rerr.Index, "name", rerr.Name, "error", rerr.Err)
	}

	metrics.SkippedRecordsTotal.Add(float64(len(skipped)))

	if f.options.Dedupe {
		var err error

		businesses, res.Duplicates, err = Dedupe(businesses)
		if err != nil {
			return f.finish(res, fmt.Errorf("deduplicating places: %w", err))
		}
	}

	res.Businesses = businesses
	res.Skipped = len(skipped)
	res.State = StateDone

	f.store(ctx, key, res, log)

	return f.finish(res, nil)
}

// Request is a complete discovery: search, then the optional enrichment,
// rating filter and distance sort.
type Request struct {
	Origin   spatial.Point
	Category string
	Radius   int
	// Enrich looks ratings up when the finder has an Enricher.
	Enrich  bool
	Workers int
	// MinRating filters on the 0-5 scale. Nil keeps unrated businesses.
	MinRating *float64
	// OnEnrich is called with the number of businesses about to be enriched
	// and returns a per business progress callback.
	OnEnrich func(total int) func()
}

// Discover runs the whole pipeline for req. The returned businesses are
// sorted by distance.
func (f *Finder) Discover(ctx context.Context, req Request) Result {
	res := f.Search(ctx, req.Origin, req.Category, req.Radius)
	if res.Err != nil {
		return res
	}

	if req.Enrich && f.options.Enricher != nil && len(res.Businesses) > 0 {
		res.State = StateEnrich

		var progress func()
		if req.OnEnrich != nil {
			progress = req.OnEnrich(len(res.Businesses))
		}

		res.Enriched = f.options.Enricher.EnrichAll(ctx, res.Businesses, req.Workers, progress)
	}

	res.State = StateFilterSort

	if req.MinRating != nil {
		res.Businesses = FilterByRating(res.Businesses, *req.MinRating)
	}

	res.Businesses = SortByDistance(res.Businesses)
	res.State = StateDone

	return res
}

func (f *Finder) finish(res Result, err error) Result {
	if err != nil {
		res.Err = err
		res.Businesses = []*Business{}

		if res.State != StateBuildQuery {
			res.State = StateFailed
		}

		f.logger.Warn("Search failed", "category", res.Query.Category, "error", err)
	}

	metrics.SearchesTotal.WithLabelValues(string(res.State)).Inc()

	return res
}

func (f *Finder) lookup(ctx context.Context, key string, log *slog.Logger) (*cachedSearch, bool) {
	if f.options.Cache == nil {
		return nil, false
	}

	data, err := f.options.Cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			log.Warn("Cache lookup failed", "error", err)
		}

		metrics.CacheMissesTotal.Inc()

		return nil, false
	}

	var cached cachedSearch
	if err := json.Unmarshal(data, &cached); err != nil {
		log.Warn("Discarding undecodable cache entry", "error", err)
		metrics.CacheMissesTotal.Inc()

		return nil, false
	}

	metrics.CacheHitsTotal.Inc()

	return &cached, true
}

func (f *Finder) store(ctx context.Context, key string, res Result, log *slog.Logger) {
	if f.options.Cache == nil {
		return
	}

	data, err := json.Marshal(cachedSearch{
		Businesses: res.Businesses,
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
	})
	if err != nil {
		log.Warn("Encoding cache entry", "error", err)
		return
	}

	if err := f.options.Cache.Set(ctx, key, data); err != nil {
		log.Warn("Cache store failed", "error", err)
	}
}
