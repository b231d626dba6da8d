package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		expected ErrorClass
	}{
		{name: "ok", code: 200, expected: ""},
		{name: "too many requests", code: 429, expected: ErrorClassRateLimit},
		{name: "internal server error", code: 500, expected: ErrorClassServer},
		{name: "bad gateway", code: 502, expected: ErrorClassServer},
		{name: "service unavailable", code: 503, expected: ErrorClassServer},
		{name: "forbidden", code: 403, expected: ErrorClassForbidden},
		{name: "unauthorized", code: 401, expected: ErrorClassForbidden},
		{name: "not found", code: 404, expected: ErrorClassNotFound},
		{name: "request timeout", code: 408, expected: ErrorClassTimeout},
		{name: "bad request", code: 400, expected: ErrorClassClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyStatus(tt.code); got != tt.expected {
				t.Errorf("ClassifyStatus(%d) = %q, want %q", tt.code, got, tt.expected)
			}
		})
	}
}

func TestErrorClassRetryable(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected bool
	}{
		{ErrorClassNetwork, true},
		{ErrorClassTimeout, true},
		{ErrorClassRateLimit, true},
		{ErrorClassServer, true},
		{ErrorClassNotFound, false},
		{ErrorClassForbidden, false},
		{ErrorClassMalformed, false},
		{ErrorClassClient, false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.class), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.Retryable())
		})
	}
}

func TestErrorIsSentinels(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", &Error{Op: "profile", StatusCode: 404, Class: ErrorClassNotFound})
	assert.True(t, errors.Is(notFound, ErrNotFound))
	assert.False(t, errors.Is(notFound, ErrTransient))
	assert.False(t, errors.Is(notFound, ErrForbidden))

	server := &Error{Op: "match_page", StatusCode: 502, Class: ErrorClassServer}
	assert.True(t, errors.Is(server, ErrTransient))
	assert.True(t, server.Retryable())

	malformed := &Error{Op: "match_detail", Class: ErrorClassMalformed}
	assert.True(t, errors.Is(malformed, ErrMalformed))
	assert.False(t, malformed.Retryable())
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset by peer")
	err := &Error{Op: "profile", Class: ErrorClassNetwork, Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "profile: network error")
	assert.Contains(t, err.Error(), "connection reset by peer")
}

func TestClassifyTransport(t *testing.T) {
	assert.Equal(t, ErrorClassTimeout, ClassifyTransport(context.DeadlineExceeded))
	assert.Equal(t, ErrorClassTimeout, ClassifyTransport(fmt.Errorf("get: %w", context.DeadlineExceeded)))
	assert.Equal(t, ErrorClassNetwork, ClassifyTransport(errors.New("connection refused")))
}

func TestClassifyMessage(t *testing.T) {
	tests := []struct {
		msg      string
		expected ErrorClass
	}{
		{"Not permitted: user not found", ErrorClassNotFound},
		{"Not permitted: not allowed", ErrorClassForbidden},
		{"Profile is private", ErrorClassForbidden},
		{"Not permitted: rate limit exceeded", ErrorClassRateLimit},
		{"something unexpected", ErrorClassMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyMessage(tt.msg))
		})
	}
}

func TestClassOf(t *testing.T) {
	assert.Equal(t, ErrorClassForbidden, ClassOf(fmt.Errorf("x: %w", &Error{Class: ErrorClassForbidden})))
	assert.Equal(t, ErrorClass(""), ClassOf(errors.New("plain")))
}
