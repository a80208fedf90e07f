// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jcodagnone/cerca/spatial"
)

// MinAddressLength is the shortest trimmed address text accepted.
const MinAddressLength = 2

// Resolver picks a search origin from a device reading, an address or the
// network origin of the caller.
type Resolver struct {
	geocoder Geocoder
	network  []NetworkLocator
	logger   *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithNetworkLocator appends a locator consulted by ResolveByNetworkOrigin.
// Locators are tried in the order they were added.
func WithNetworkLocator(l NetworkLocator) ResolverOption {
	return func(r *Resolver) {
		r.network = append(r.network, l)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// NewResolver creates a Resolver geocoding addresses through geocoder.
func NewResolver(geocoder Geocoder, opts ...ResolverOption) *Resolver {
	r := &Resolver{geocoder: geocoder, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

// ResolveAddress geocodes free-form text.
func (r *Resolver) ResolveAddress(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < MinAddressLength {
		return nil, fmt.Errorf("%w: need at least %d characters", ErrInvalidAddress, MinAddressLength)
	}

	return r.geocoder.Geocode(ctx, text)
}

// ResolveByNetworkOrigin estimates the position of ip, trying each locator
// in turn.
func (r *Resolver) ResolveByNetworkOrigin(ctx context.Context, ip string) (*Result, error) {
	var errs []error

	for _, l := range r.network {
		res, err := l.LocateIP(ctx, ip)
		if err == nil && !res.Point.IsZero() {
			return res, nil
		}

		if err == nil {
			err = ErrNotFound
		}

		r.logger.Debug("network locator failed", "ip", ip, "error", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, ErrNotFound
	}

	for _, err := range errs {
		if !errors.Is(err, ErrNotFound) {
			return nil, errors.Join(errs...)
		}
	}

	return nil, ErrNotFound
}

// Locate prefers the device reading; a missing or (0,0) reading falls back
// to the network origin.
func (r *Resolver) Locate(ctx context.Context, device *spatial.Point, ip string) (*Result, error) {
	if device != nil && !device.IsZero() {
		if err := device.Validate(); err != nil {
			return nil, err
		}

		return &Result{Point: *device, Source: SourceDevice}, nil
	}

	return r.ResolveByNetworkOrigin(ctx, ip)
}
