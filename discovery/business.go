// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery finds nearby businesses through a places provider and
// ranks them by distance and rating.
package discovery

import (
	"errors"

	"github.com/jcodagnone/cerca/spatial"
)

const (
	// UnnamedBusiness replaces a missing name.
	UnnamedBusiness = "Unnamed Business"
	// NoAddress replaces a missing formatted address.
	NoAddress = "No address"
	// UnknownCategory is used when the provider lists no category.
	UnknownCategory = "unknown"
)

// ErrRatingAlreadySet is returned by SetRating on a business already rated.
var ErrRatingAlreadySet = errors.New("rating already set")

// Business is a place found around a search origin. Distance is relative to
// that origin. Rating is on the 0-10 scale of the ratings provider.
type Business struct {
	Name     string        `json:"name"`
	Address  string        `json:"address"`
	Point    spatial.Point `json:"point"`
	Distance float64       `json:"distance"`
	Category string        `json:"category"`
	Rating   *float64      `json:"rating,omitempty"`
	PlaceID  string        `json:"place_id,omitempty"`
}

// SetRating attaches a rating. It can only be called once per business.
func (b *Business) SetRating(rating float64) error {
	if b.Rating != nil {
		return ErrRatingAlreadySet
	}

	b.Rating = &rating

	return nil
}

// Stars returns the rating on the 0-5 scale, or nil when unrated.
func (b *Business) Stars() *float64 {
	if b.Rating == nil {
		return nil
	}

	s := NormalizeRating(*b.Rating)

	return &s
}
