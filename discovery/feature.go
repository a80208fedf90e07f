// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/jcodagnone/cerca/spatial"
)

// Feature is one record of a places response.
type Feature struct {
	Properties struct {
		Name       string   `json:"name"`
		Formatted  string   `json:"formatted"`
		Distance   *float64 `json:"distance"`
		Categories []string `json:"categories"`
		PlaceID    string   `json:"place_id"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// RecordError describes a feature that could not be mapped.
type RecordError struct {
	Index int
	Name  string
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("feature %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

var (
	errMissingCoordinates = errors.New("missing coordinates")
	errNegativeDistance   = errors.New("negative distance")
)

// ParseFeatures maps every raw feature. Records that fail are left out and
// reported, the rest keep their input order.
func ParseFeatures(features []json.RawMessage, origin spatial.Point) ([]*Business, []*RecordError) {
	businesses := make([]*Business, 0, len(features))

	var skipped []*RecordError

	for i, raw := range features {
		var f Feature
		if err := json.Unmarshal(raw, &f); err != nil {
			skipped = append(skipped, &RecordError{Index: i, Err: err})
			continue
		}

		b, err := BusinessFromFeature(&f, origin)
		if err != nil {
			skipped = append(skipped, &RecordError{Index: i, Name: f.Properties.Name, Err: err})
			continue
		}

		businesses = append(businesses, b)
	}

	return businesses, skipped
}

// BusinessFromFeature converts f. Coordinates arrive as [lon, lat]. A missing
// distance is computed from origin and rounded to centimeters.
func BusinessFromFeature(f *Feature, origin spatial.Point) (*Business, error) {
	coords := f.Geometry.Coordinates
	if len(coords) < 2 {
		return nil, errMissingCoordinates
	}

	p := spatial.Point{Lat: coords[1], Lng: coords[0]}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	props := f.Properties

	b := &Business{
		Name:     props.Name,
		Address:  props.Formatted,
		Point:    p,
		Category: providerCategory(props.Categories),
		PlaceID:  props.PlaceID,
	}

	if b.Name == "" {
		b.Name = UnnamedBusiness
	}

	if b.Address == "" {
		b.Address = NoAddress
	}

	if props.Distance != nil {
		if *props.Distance < 0 || math.IsNaN(*props.Distance) {
			return nil, errNegativeDistance
		}

		b.Distance = *props.Distance
	} else {
		b.Distance = math.Round(spatial.HaversineDistance(origin, p)*100) / 100
	}

	return b, nil
}

// providerCategory keeps the first category as the provider spells it.
// Dotted paths are canonical taxonomy paths and stay whole; only a slash
// separated prefix is dropped.
func providerCategory(categories []string) string {
	if len(categories) == 0 {
		return UnknownCategory
	}

	c := categories[0]
	if leaf := c[strings.LastIndex(c, "/")+1:]; leaf != "" {
		return leaf
	}

	return UnknownCategory
}
