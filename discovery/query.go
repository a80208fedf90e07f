// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/url"
	"strconv"

	"github.com/jcodagnone/cerca/spatial"
)

const (
	// DefaultRadius is the search radius in meters.
	DefaultRadius = 5000
	// MaxLimit caps the number of places requested from the provider.
	MaxLimit = 20
)

// State is a step of a search request.
type State string

const (
	StateBuildQuery State = "BUILD_QUERY"
	StateDispatch   State = "DISPATCH"
	StateParse      State = "PARSE"
	StateEnrich     State = "ENRICH"
	StateFilterSort State = "FILTER/SORT"
	StateDone       State = "DONE"
	StateFailed     State = "FAILED"
)

// Query is a places search around Origin. Category is a canonical taxonomy
// path.
type Query struct {
	Origin   spatial.Point `json:"origin"`
	Category string        `json:"category"`
	Radius   int           `json:"radius"`
	Limit    int           `json:"limit"`
}

func (q Query) normalized() Query {
	if q.Radius <= 0 {
		q.Radius = DefaultRadius
	}

	if q.Limit <= 0 || q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}

	return q
}

// BuildParams returns the provider query parameters for q: a circular filter
// and a proximity bias, both centered on the origin.
func BuildParams(q Query, apiKey string) url.Values {
	q = q.normalized()
	lonLat := q.Origin.LonLat()

	params := url.Values{}
	params.Set("categories", q.Category)
	params.Set("filter", "circle:"+lonLat+","+strconv.Itoa(q.Radius))
	params.Set("bias", "proximity:"+lonLat)
	params.Set("limit", strconv.Itoa(q.Limit))
	params.Set("apiKey", apiKey)

	return params
}
