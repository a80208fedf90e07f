// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/jcodagnone/cerca/utils/textutils"
)

// DedupeResolution is the H3 resolution used to decide two records describe
// the same place. Cells at resolution 11 are about 25 m across.
const DedupeResolution = 11

// Dedupe drops businesses whose normalized name and address were already seen
// in the same H3 cell, keeping the first occurrence. Unnamed businesses are
// never merged.
func Dedupe(businesses []*Business) ([]*Business, int, error) {
	seen := make(map[string]struct{}, len(businesses))
	out := make([]*Business, 0, len(businesses))

	for _, b := range businesses {
		if b.Name == UnnamedBusiness {
			out = append(out, b)
			continue
		}

		cell, err := h3.LatLngToCell(h3.NewLatLng(b.Point.Lat, b.Point.Lng), DedupeResolution)
		if err != nil {
			return nil, 0, fmt.Errorf("error converting %s to h3 cell: %w", b.Point, err)
		}

		key := cell.String() + "/" + textutils.Slug(b.Name) + "/" + textutils.Slug(b.Address)
		if _, ok := seen[key]; ok {
			continue
		}

		seen[key] = struct{}{}
		out = append(out, b)
	}

	return out, len(businesses) - len(out), nil
}
