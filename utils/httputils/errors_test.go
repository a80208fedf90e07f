// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsTransient(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"transient", &RequestError{Kind: KindTransient}, true},
		{"wrapped transient", fmt.Errorf("searching: %w", &RequestError{Kind: KindTransient}), true},
		{"permanent", &RequestError{Kind: KindPermanent}, false},
		{"plain error", errors.New("boom"), false},
	}, IsTransient)
}

func TestIsExhausted(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"exhausted", &RequestError{Kind: KindExhausted}, true},
		{"wrapped", fmt.Errorf("GET x: %w", &RequestError{Kind: KindExhausted}), true},
		{"transient", &RequestError{Kind: KindTransient}, false},
	}, IsExhausted)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{"deadline", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), true},
		{"message", errors.New("i/o timeout"), true},
		{"other", errors.New("connection refused"), false},
	}, IsTimeoutError)
}

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		kind   ErrorKind
	}{
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusGatewayTimeout, KindTransient},
		{http.StatusBadRequest, KindPermanent},
		{http.StatusUnauthorized, KindPermanent},
		{http.StatusForbidden, KindPermanent},
		{http.StatusNotFound, KindPermanent},
		{http.StatusConflict, KindPermanent},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ClassifyStatus(tt.status, "")
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}

	err := ClassifyStatus(http.StatusUnauthorized, ` {"error":"Invalid apiKey"} `)
	assert.Equal(t, `authentication failed or access denied: {"error":"Invalid apiKey"}`, err.Error())
}

func TestClassifyTransportError(t *testing.T) {
	err := classifyTransportError(context.Background(), errors.New("connection reset by peer"))
	assert.Equal(t, KindTransient, err.Kind)

	err = classifyTransportError(context.Background(), context.DeadlineExceeded)
	assert.Equal(t, KindTransient, err.Kind)
	assert.Equal(t, "request timed out", err.Message)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = classifyTransportError(ctx, context.Canceled)
	assert.Equal(t, KindPermanent, err.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "transient", KindTransient.String())
	assert.Equal(t, "permanent", KindPermanent.String())
	assert.Equal(t, "exhausted", KindExhausted.String())
	assert.Equal(t, "unknown", KindUnknown.String())
}
