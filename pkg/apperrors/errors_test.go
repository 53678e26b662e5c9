package apperrors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpstreamError_IsErrUpstream(t *testing.T) {
	err := fmt.Errorf("search: %w", &UpstreamError{
		Method:     "POST",
		URL:        "https://delta.example/api/object/graph-query",
		StatusCode: 503,
		Message:    "request failed",
	})

	assert.ErrorIs(t, err, ErrUpstream)
	assert.NotErrorIs(t, err, ErrAuditWrite)

	var upstream *UpstreamError
	assert.True(t, errors.As(err, &upstream))
	assert.Equal(t, 503, upstream.StatusCode)
}

func TestUpstreamError_UnwrapsUnderlying(t *testing.T) {
	err := &UpstreamError{Method: "POST", URL: "u", Message: "request failed", Underlying: context.DeadlineExceeded}

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, "POST u: request failed: context deadline exceeded", err.Error())
}

func TestUpstreamError_MessageIncludesStatus(t *testing.T) {
	err := &UpstreamError{Method: "POST", URL: "u", StatusCode: 401, Message: "unexpected status"}
	assert.Equal(t, "POST u: unexpected status (status 401)", err.Error())
}
