// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/jcodagnone/cerca/category"
	"github.com/jcodagnone/cerca/discovery"
	"github.com/jcodagnone/cerca/geocode"
	"github.com/jcodagnone/cerca/utils/httputils"
)

func newHTTPClient(headers map[string]string, limiter *rate.Limiter) *httputils.Client {
	return httputils.NewClient(&httputils.ClientOptions{
		UserAgent:           fmt.Sprintf("cerca/%s (+https://github.com/jcodagnone/cerca)", Version),
		Headers:             headers,
		Limiter:             limiter,
		EnableHTTPTrace:     globalOptions.TraceHTTP,
		EnableHTTPBodyTrace: globalOptions.TraceHTTPBody,
		Logger:              logger,
	})
}

// newCache returns the Redis cache when REDIS_ADDR is set, an in-memory one
// otherwise. The returned function releases it.
func newCache() (discovery.Cache, func() error) {
	if config.RedisAddr == "" {
		return discovery.NewMemoryCache(config.CacheCapacity, config.CacheTTL), func() error { return nil }
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	logger.Debug("Using redis cache", "addr", config.RedisAddr, "db", config.RedisDB)

	return discovery.NewRedisCache(client, config.CacheTTL), client.Close
}

// newEnricher returns nil when no ratings key is configured.
func newEnricher() *discovery.Enricher {
	if config.FoursquareKey == "" {
		return nil
	}

	client := newHTTPClient(
		map[string]string{"Authorization": config.FoursquareKey},
		rate.NewLimiter(rate.Limit(config.RatingsRPS), 1),
	)

	return discovery.NewEnricher(client, "", logger)
}

type components struct {
	categories *category.Resolver
	finder     *discovery.Finder
	locator    *geocode.Resolver
	router     *discovery.Router
	closers    []func() error
}

func (c *components) Close() {
	for _, closer := range c.closers {
		if err := closer(); err != nil {
			logger.Warn("Releasing resource", "error", err)
		}
	}
}

// newComponents wires the providers. It fails when the Geoapify key is
// missing or malformed.
func newComponents() (*components, error) {
	if err := ValidateGeoapifyKey(config.GeoapifyKey); err != nil {
		return nil, err
	}

	client := newHTTPClient(nil, nil)
	c := &components{categories: category.NewResolver(nil)}

	cache, closeCache := newCache()
	c.closers = append(c.closers, closeCache)

	c.finder = discovery.NewFinder(client, c.categories, discovery.FinderOptions{
		APIKey:   config.GeoapifyKey,
		Cache:    cache,
		Enricher: newEnricher(),
		Logger:   logger,
		Dedupe:   config.Dedupe,
	})
	c.router = discovery.NewRouter(client, config.GeoapifyKey, "")

	geoapify := geocode.NewGeoapifyGeocoder(client, config.GeoapifyKey, "", "")
	opts := []geocode.ResolverOption{geocode.WithLogger(logger)}

	if config.GeoIPDB != "" {
		geoip, err := geocode.OpenGeoIP(config.GeoIPDB)
		if err != nil {
			c.Close()
			return nil, err
		}

		c.closers = append(c.closers, geoip.Close)
		opts = append(opts, geocode.WithNetworkLocator(geoip))
	}

	opts = append(opts, geocode.WithNetworkLocator(geoapify))
	c.locator = geocode.NewResolver(geoapify, opts...)

	return c, nil
}
