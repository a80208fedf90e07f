// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jcodagnone/cerca/category"
	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/geocode"
	"github.com/jcodagnone/cerca/spatial"
)

type businessView struct {
	*discovery.Business
	Stars *float64 `json:"stars,omitempty"`
}

type searchResponse struct {
	Origin     *geocode.Result  `json:"origin"`
	Query      discovery.Query  `json:"query"`
	Businesses []businessView   `json:"businesses"`
	Skipped    int              `json:"skipped"`
	Duplicates int              `json:"duplicates"`
	Cached     bool             `json:"cached"`
	State      discovery.State  `json:"state"`
	Enriched   *enrichStatsView `json:"enriched,omitempty"`
}

type enrichStatsView struct {
	Rated   int `json:"rated"`
	Unrated int `json:"unrated"`
	Failed  int `json:"failed"`
}

type categoryView struct {
	Path    string   `json:"path"`
	Aliases []string `json:"aliases,omitempty"`
}

func (s *Server) healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) search(ctx *gin.Context) {
	origin, ok := s.resolveOrigin(ctx)
	if !ok {
		return
	}

	radius := s.config.DefaultRadius
	if v := ctx.Query("radius"); v != "" {
		r, err := strconv.Atoi(v)
		if err != nil || r <= 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "radius must be a positive integer"})

			return
		}

		radius = r
	}

	rawCategory := ctx.DefaultQuery("category", s.config.DefaultCategory)
	if rawCategory == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "category query parameter is required"})

		return
	}

	enrich := ctx.Query("enrich") == "true" || ctx.Query("enrich") == "1"

	var minRating *float64

	if v := ctx.Query("min_rating"); v != "" {
		m, err := strconv.ParseFloat(v, 64)
		if err != nil || m < 0 || m > 5 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "min_rating must be a number between 0 and 5"})

			return
		}

		minRating = &m
	} else if enrich {
		minRating = &s.config.MinRating
	}

	res := s.finder.Discover(ctx.Request.Context(), discovery.Request{
		Origin:    origin.Point,
		Category:  rawCategory,
		Radius:    radius,
		Enrich:    enrich,
		Workers:   s.config.Workers,
		MinRating: minRating,
	})

	if res.Err != nil {
		s.searchFailed(ctx, rawCategory, res)

		return
	}

	resp := searchResponse{
		Origin:     origin,
		Query:      res.Query,
		Businesses: make([]businessView, 0, len(res.Businesses)),
		Skipped:    res.Skipped,
		Duplicates: res.Duplicates,
		Cached:     res.Cached,
		State:      res.State,
	}

	if enrich {
		resp.Enriched = &enrichStatsView{
			Rated:   res.Enriched.Rated,
			Unrated: res.Enriched.Unrated,
			Failed:  res.Enriched.Failed,
		}
	}

	for _, b := range res.Businesses {
		resp.Businesses = append(resp.Businesses, businessView{Business: b, Stars: b.Stars()})
	}

	ctx.JSON(http.StatusOK, resp)
}

func (s *Server) searchFailed(ctx *gin.Context, rawCategory string, res discovery.Result) {
	switch {
	case errors.Is(res.Err, discovery.ErrUnknownCategory):
		ctx.JSON(http.StatusBadRequest, gin.H{
			"error":       res.Err.Error(),
			"suggestions": s.suggestions(rawCategory),
		})
	case errors.Is(res.Err, discovery.ErrInvalidOrigin):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": res.Err.Error()})
	default:
		ctx.JSON(http.StatusBadGateway, gin.H{"error": res.Err.Error(), "state": res.State})
	}
}

// resolveOrigin reads lat/lon, then address, then falls back to the
// client's network origin. It writes the error response itself.
func (s *Server) resolveOrigin(ctx *gin.Context) (*geocode.Result, bool) {
	device, err := parsePoint(ctx, "lat", "lon")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return nil, false
	}

	var res *geocode.Result

	if address := ctx.Query("address"); address != "" && device == nil {
		res, err = s.locator.ResolveAddress(ctx.Request.Context(), address)
	} else {
		res, err = s.locator.Locate(ctx.Request.Context(), device, ctx.ClientIP())
	}

	if err != nil {
		s.locationFailed(ctx, err)

		return nil, false
	}

	return res, true
}

func (s *Server) locationFailed(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, geocode.ErrInvalidAddress):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, geocode.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "location not found", "details": err.Error()})
	default:
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "location provider failed", "details": err.Error()})
	}
}

// parsePoint returns nil when both parameters are absent.
func parsePoint(ctx *gin.Context, latKey, lonKey string) (*spatial.Point, error) {
	latStr, lonStr := ctx.Query(latKey), ctx.Query(lonKey)
	if latStr == "" && lonStr == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", latKey, latStr)
	}

	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", lonKey, lonStr)
	}

	p := spatial.Point{Lat: lat, Lng: lon}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Server) suggestions(input string) []category.Match {
	return s.categories.Suggest(input, 5)
}

func (s *Server) listCategories(ctx *gin.Context) {
	q := ctx.Query("q")
	if q == "" {
		entries := s.categories.Taxonomy().Entries()

		out := make([]categoryView, 0, len(entries))
		for _, e := range entries {
			out = append(out, categoryView{Path: e.Path, Aliases: e.Aliases})
		}

		ctx.JSON(http.StatusOK, gin.H{"groups": s.categories.Taxonomy().Groups(), "categories": out})

		return
	}

	path, err := s.categories.Resolve(q)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "suggestions": s.suggestions(q)})

		return
	}

	ctx.JSON(http.StatusOK, gin.H{"category": path, "suggestions": s.suggestions(q)})
}

func (s *Server) geocodeAddress(ctx *gin.Context) {
	address := ctx.Query("address")

	res, err := s.locator.ResolveAddress(ctx.Request.Context(), address)
	if err != nil {
		s.locationFailed(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (s *Server) locate(ctx *gin.Context) {
	device, err := parsePoint(ctx, "lat", "lon")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	res, err := s.locator.Locate(ctx.Request.Context(), device, ctx.ClientIP())
	if err != nil {
		s.locationFailed(ctx, err)

		return
	}

	ctx.JSON(http.StatusOK, res)
}

func (s *Server) directions(ctx *gin.Context) {
	if s.router == nil {
		ctx.JSON(http.StatusNotImplemented, gin.H{"error": "directions are not configured"})

		return
	}

	from, err := parsePoint(ctx, "from_lat", "from_lon")
	if err == nil && from == nil {
		err = errors.New("from_lat and from_lon are required")
	}

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	to, err := parsePoint(ctx, "to_lat", "to_lon")
	if err == nil && to == nil {
		err = errors.New("to_lat and to_lon are required")
	}

	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	mode, err := discovery.ParseMode(ctx.Query("mode"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	route, err := s.router.Directions(ctx.Request.Context(), *from, *to, mode)
	if errors.Is(err, discovery.ErrNoRoute) {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

		return
	}

	if err != nil {
		ctx.JSON(http.StatusBadGateway, gin.H{"error": "routing provider failed", "details": err.Error()})

		return
	}

	ctx.JSON(http.StatusOK, route)
}
