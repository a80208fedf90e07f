// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jcodagnone/cerca/spatial"
)

func TestBuildParams(t *testing.T) {
	origin := spatial.Point{Lat: 6.5244, Lng: 3.3792}

	tests := []struct {
		name  string
		query Query
		want  url.Values
	}{
		{
			name:  "explicit radius and limit",
			query: Query{Origin: origin, Category: "healthcare.pharmacy", Radius: 1500, Limit: 5},
			want: url.Values{
				"categories": {"healthcare.pharmacy"},
				"filter":     {"circle:3.3792,6.5244,1500"},
				"bias":       {"proximity:3.3792,6.5244"},
				"limit":      {"5"},
				"apiKey":     {"secret"},
			},
		},
		{
			name:  "defaults",
			query: Query{Origin: origin, Category: "catering.restaurant"},
			want: url.Values{
				"categories": {"catering.restaurant"},
				"filter":     {"circle:3.3792,6.5244,5000"},
				"bias":       {"proximity:3.3792,6.5244"},
				"limit":      {"20"},
				"apiKey":     {"secret"},
			},
		},
		{
			name:  "limit capped",
			query: Query{Origin: spatial.Point{Lat: -34.9011, Lng: -56.1645}, Category: "catering.cafe", Radius: 300, Limit: 500},
			want: url.Values{
				"categories": {"catering.cafe"},
				"filter":     {"circle:-56.1645,-34.9011,300"},
				"bias":       {"proximity:-56.1645,-34.9011"},
				"limit":      {"20"},
				"apiKey":     {"secret"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, BuildParams(tt.query, "secret")); diff != "" {
				t.Errorf("BuildParams() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
