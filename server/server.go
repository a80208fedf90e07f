// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes discovery over an HTTP JSON API.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jcodagnone/cerca/category"
	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/geocode"
	"github.com/jcodagnone/cerca/metrics"
)

// DefaultAddr is the listen address when none is configured.
const DefaultAddr = "localhost:8080"

// Config holds the defaults applied to requests that omit them.
type Config struct {
	Addr            string
	DefaultRadius   int
	DefaultCategory string
	MinRating       float64
	Workers         int
}

type Server struct {
	finder     *discovery.Finder
	locator    *geocode.Resolver
	categories *category.Resolver
	router     *discovery.Router
	config     Config
	logger     *slog.Logger
}

// New creates a Server. router may be nil, which disables /api/directions.
func New(
	finder *discovery.Finder,
	locator *geocode.Resolver,
	categories *category.Resolver,
	router *discovery.Router,
	config Config,
	logger *slog.Logger,
) *Server {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}

	if config.DefaultRadius <= 0 {
		config.DefaultRadius = discovery.DefaultRadius
	}

	if config.MinRating <= 0 {
		config.MinRating = discovery.DefaultMinRating
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		finder:     finder,
		locator:    locator,
		categories: categories,
		router:     router,
		config:     config,
		logger:     logger,
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger))

	r.GET("/healthz", s.healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := r.Group("/api")
	api.GET("/search", s.search)
	api.GET("/categories", s.listCategories)
	api.GET("/geocode", s.geocodeAddress)
	api.GET("/locate", s.locate)
	api.GET("/directions", s.directions)

	return r
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("Listening", "addr", s.config.Addr)
		errChan <- srv.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if err := <-errChan; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
