// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package discovery

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jcodagnone/cerca/utils/httputils"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(attempts int) *httputils.Client {
	return httputils.NewClient(&httputils.ClientOptions{
		Timeout: 2 * time.Second,
		Retry: httputils.RetryPolicy{
			MaxAttempts:  attempts,
			InitialDelay: time.Millisecond,
			Multiplier:   2,
			MaxDelay:     5 * time.Millisecond,
		},
	})
}
