// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/jcodagnone/cerca/metrics"
)

// DefaultRatingsURL is the Foursquare places endpoint. Search lives at
// /search and details at /{fsq_id}.
const DefaultRatingsURL = "https://api.foursquare.com/v3/places"

// DefaultWorkers is the enrichment pool size.
const DefaultWorkers = 4

// Enricher looks businesses up on the ratings provider. The client is
// expected to carry the provider's Authorization header.
type Enricher struct {
	client  Getter
	baseURL string
	logger  *slog.Logger
}

// NewEnricher creates an Enricher. An empty baseURL selects DefaultRatingsURL.
func NewEnricher(client Getter, baseURL string, logger *slog.Logger) *Enricher {
	if baseURL == "" {
		baseURL = DefaultRatingsURL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Enricher{client: client, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

type ratingsSearchResponse struct {
	Results []struct {
		FsqID string `json:"fsq_id"`
	} `json:"results"`
}

type ratingsDetailResponse struct {
	Rating *float64 `json:"rating"`
}

// Enrich finds the closest match for b by name and position and attaches
// its rating. A business without a match or without a rating yields
// (nil, nil). A business already rated is returned as is.
func (e *Enricher) Enrich(ctx context.Context, b *Business) (*float64, error) {
	if b.Rating != nil {
		return b.Rating, nil
	}

	params := url.Values{}
	params.Set("query", b.Name)
	params.Set("ll", b.Point.LatLon())
	params.Set("limit", "1")

	var search ratingsSearchResponse
	if err := e.client.Get(ctx, e.baseURL+"/search", params, &search); err != nil {
		return nil, fmt.Errorf("searching %q: %w", b.Name, err)
	}

	if len(search.Results) == 0 || search.Results[0].FsqID == "" {
		metrics.EnrichmentsTotal.WithLabelValues("no_match").Inc()
		return nil, nil
	}

	fsqID := search.Results[0].FsqID

	var detail ratingsDetailResponse
	if err := e.client.Get(ctx, e.baseURL+"/"+url.PathEscape(fsqID), nil, &detail); err != nil {
		return nil, fmt.Errorf("fetching details for %q (%s): %w", b.Name, fsqID, err)
	}

	if detail.Rating == nil {
		metrics.EnrichmentsTotal.WithLabelValues("no_rating").Inc()
		return nil, nil
	}

	if r := *detail.Rating; r < 0 || r > 10 {
		e.logger.Warn("discarding out of range rating", "name", b.Name, "fsq_id", fsqID, "rating", r)
		metrics.EnrichmentsTotal.WithLabelValues("no_rating").Inc()

		return nil, nil
	}

	if err := b.SetRating(*detail.Rating); err != nil {
		return nil, err
	}

	metrics.EnrichmentsTotal.WithLabelValues("rated").Inc()

	return b.Rating, nil
}

// EnrichStats summarizes an EnrichAll run.
type EnrichStats struct {
	Rated   int
	Unrated int
	Failed  int
}

// EnrichAll enriches businesses on a pool of at most workers goroutines,
// each business handled by exactly one of them. Failures are logged and
// leave the business unrated. progress, when set, is called after every
// business.
func (e *Enricher) EnrichAll(ctx context.Context, businesses []*Business, workers int, progress func()) EnrichStats {
	if workers <= 0 {
		workers = min(DefaultWorkers, runtime.NumCPU())
	}

	var (
		wg      sync.WaitGroup
		rated   atomic.Int64
		unrated atomic.Int64
	)

	semaphore := make(chan struct{}, workers)
	errChan := make(chan error, len(businesses))

	for _, b := range businesses {
		wg.Add(1)

		go func(b *Business) {
			defer wg.Done()

			if progress != nil {
				defer progress()
			}

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				errChan <- fmt.Errorf("enriching %q: %w", b.Name, ctx.Err())
				return
			}

			defer func() { <-semaphore }()

			rating, err := e.Enrich(ctx, b)

			switch {
			case err != nil:
				errChan <- err
			case rating == nil:
				unrated.Add(1)
			default:
				rated.Add(1)
			}
		}(b)
	}

	wg.Wait()
	close(errChan)

	stats := EnrichStats{Rated: int(rated.Load()), Unrated: int(unrated.Load())}

	for err := range errChan {
		stats.Failed++

		metrics.EnrichmentsTotal.WithLabelValues("failed").Inc()
		e.logger.Warn("Enrichment failed, leaving business unrated", "error", err)
	}

	return stats
}
