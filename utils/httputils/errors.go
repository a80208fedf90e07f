// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse is wrapped by failures to decode a 2xx response body.
var ErrMalformedResponse = errors.New("malformed response body")

// ErrorKind classifies request failures for the retry policy.
type ErrorKind int

const (
	// KindUnknown is an unclassified failure, never retried.
	KindUnknown ErrorKind = iota
	// KindTransient is a failure that may succeed on retry: transport errors,
	// timeouts, 5xx and 429.
	KindTransient
	// KindPermanent is a failure that will not improve by retrying:
	// malformed requests, authentication, undecodable bodies.
	KindPermanent
	// KindExhausted means every attempt allowed by the policy failed.
	KindExhausted
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindExhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// RequestError is a classified request failure.
type RequestError struct {
	Kind       ErrorKind
	StatusCode int // 0 when no response was received
	Message    string
	Attempts   int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

func kindOf(err error) ErrorKind {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Kind
	}

	return KindUnknown
}

// IsTransient reports whether err is a failure worth retrying.
func IsTransient(err error) bool {
	return kindOf(err) == KindTransient
}

// IsPermanent reports whether err is a failure that must not be retried.
func IsPermanent(err error) bool {
	return kindOf(err) == KindPermanent
}

// IsExhausted reports whether err is the result of running out of attempts.
func IsExhausted(err error) bool {
	return kindOf(err) == KindExhausted
}

// IsTimeoutError reports whether err was caused by a timeout.
func IsTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var timeout interface{ Timeout() bool }
	if errors.As(err, &timeout) && timeout.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())

	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded")
}

// ClassifyStatus classifies a non-2xx HTTP status. body is an optional
// excerpt of the response included in the message.
func ClassifyStatus(statusCode int, body string) *RequestError {
	var e *RequestError

	switch {
	case statusCode == http.StatusTooManyRequests: // 429
		e = &RequestError{Kind: KindTransient, Message: "rate limit reached"}
	case statusCode >= 500:
		e = &RequestError{Kind: KindTransient, Message: fmt.Sprintf("provider unavailable (status %d)", statusCode)}
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden: // 401, 403
		e = &RequestError{Kind: KindPermanent, Message: "authentication failed or access denied"}
	case statusCode == http.StatusBadRequest: // 400
		e = &RequestError{Kind: KindPermanent, Message: "malformed request"}
	case statusCode == http.StatusNotFound: // 404
		e = &RequestError{Kind: KindPermanent, Message: "resource not found"}
	default:
		e = &RequestError{Kind: KindPermanent, Message: fmt.Sprintf("unexpected HTTP status %d", statusCode)}
	}

	e.StatusCode = statusCode
	if body = strings.TrimSpace(body); body != "" {
		e.Message += ": " + body
	}

	return e
}

// classifyTransportError classifies an error returned before a response was
// available. Cancellation of the caller's context is permanent, everything
// else on the wire is transient.
func classifyTransportError(parent context.Context, err error) *RequestError {
	if parent.Err() != nil {
		return &RequestError{Kind: KindPermanent, Message: "request canceled", Err: err}
	}

	if IsTimeoutError(err) {
		return &RequestError{Kind: KindTransient, Message: "request timed out", Err: err}
	}

	return &RequestError{Kind: KindTransient, Message: "transport failure", Err: err}
}
