// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"cmp"
	"slices"
)

// DefaultMinRating is the default threshold on the 0-5 scale.
const DefaultMinRating = 2.5

// NormalizeRating converts a 0-10 provider rating to the 0-5 scale.
func NormalizeRating(rating float64) float64 {
	return rating / 2
}

// FilterByRating returns the businesses whose normalized rating is at least
// minRating. Unrated businesses are always dropped.
func FilterByRating(businesses []*Business, minRating float64) []*Business {
	out := make([]*Business, 0, len(businesses))

	for _, b := range businesses {
		if b.Rating == nil || NormalizeRating(*b.Rating) < minRating {
			continue
		}

		out = append(out, b)
	}

	return out
}

// SortByDistance returns a copy of businesses ordered by ascending distance.
// Ties keep their input order.
func SortByDistance(businesses []*Business) []*Business {
	out := slices.Clone(businesses)
	if out == nil {
		out = []*Business{}
	}

	slices.SortStableFunc(out, func(a, b *Business) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	return out
}
