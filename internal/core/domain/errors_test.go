package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Error(t *testing.T) {
	base := NewDomainError("KV-TEST-1000", "test message")

	assert.Equal(t, "[KV-TEST-1000] test message", base.Error())
	assert.Equal(t, "[KV-TEST-1000] test message: extra info", base.WithDetails("extra info").Error())
}

func TestDomainError_IsComparesCodes(t *testing.T) {
	a := NewDomainError("KV-TEST-1000", "one")

	assert.ErrorIs(t, a, NewDomainError("KV-TEST-1000", "other message"))
	assert.NotErrorIs(t, a, NewDomainError("KV-TEST-1001", "one"))
	assert.NotErrorIs(t, a, errors.New("plain"))
	assert.ErrorIs(t, fmt.Errorf("open: %w", ErrInvalidUser), ErrInvalidUser)
}

func TestDomainError_CopiesLeaveSentinelsUntouched(t *testing.T) {
	cause := errors.New("root cause")
	err := ErrAllocation.WithDetails("resource: node").WithCause(cause)

	assert.Empty(t, ErrAllocation.Details)
	assert.Nil(t, ErrAllocation.Cause)

	assert.Equal(t, "KV-VALT-5000", err.Code)
	assert.Equal(t, ErrAllocation.Message, err.Message)
	assert.Equal(t, "resource: node", err.Details)
	assert.Same(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCapacityExceeded)

	assert.Nil(t, errors.Unwrap(ErrInvalidUser))
}

func TestDomainError_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *DomainError
		want int
		area string
	}{
		{ErrInvalidUser, http.StatusBadRequest, "USER"},
		{ErrMalformedPair, http.StatusBadRequest, "DEV"},
		{ErrInvalidArgument, http.StatusBadRequest, "ARG"},
		{ErrUnauthenticated, http.StatusUnauthorized, "AUTH"},
		{ErrSessionNotFound, http.StatusNotFound, "DEV"},
		{ErrCapacityExceeded, http.StatusTooManyRequests, "VALT"},
		{ErrDeviceClosed, http.StatusServiceUnavailable, "DEV"},
		{ErrAllocation, http.StatusInternalServerError, "VALT"},
		{ErrEndOfVault, http.StatusInternalServerError, "DEV"},
		{NewDomainError("KV-AUTH-4031", "forbidden"), http.StatusForbidden, "AUTH"},
		{NewDomainError("KV-TEST-3020", "redirect"), http.StatusInternalServerError, "TEST"},
		{NewDomainError("KV-TEST-6000", "too high"), http.StatusInternalServerError, "TEST"},
		{NewDomainError("KV-TEST-x", "odd"), http.StatusInternalServerError, "TEST"},
		{NewDomainError("UNKNOWN", "odd"), http.StatusInternalServerError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
			assert.Equal(t, tt.area, tt.err.Area())
		})
	}
}

func TestIsDomainErrorAndGetErrorCode(t *testing.T) {
	wrapped := fmt.Errorf("wrapped: %w", ErrMalformedPair)

	assert.True(t, IsDomainError(ErrInvalidUser, "KV-USER-4000"))
	assert.True(t, IsDomainError(ErrInvalidUser, ""))
	assert.True(t, IsDomainError(wrapped, "KV-DEV-4000"))
	assert.False(t, IsDomainError(ErrInvalidUser, "KV-USER-9999"))
	assert.False(t, IsDomainError(errors.New("plain"), ""))

	assert.Equal(t, "KV-VALT-4290", GetErrorCode(ErrCapacityExceeded))
	assert.Equal(t, "KV-DEV-4000", GetErrorCode(wrapped))
	assert.Empty(t, GetErrorCode(errors.New("plain")))
	assert.Empty(t, GetErrorCode(nil))
}

func TestSentinelCodesAreUnique(t *testing.T) {
	sentinels := map[string]*DomainError{
		"KV-USER-4000": ErrInvalidUser,
		"KV-VALT-5000": ErrAllocation,
		"KV-VALT-4290": ErrCapacityExceeded,
		"KV-DEV-2000":  ErrEndOfVault,
		"KV-DEV-4000":  ErrMalformedPair,
		"KV-DEV-4040":  ErrSessionNotFound,
		"KV-DEV-5030":  ErrDeviceClosed,
		"KV-AUTH-4010": ErrUnauthenticated,
		"KV-AUTH-4290": ErrRateLimited,
		"KV-ARG-1001":  ErrInvalidArgument,
		"KV-ARG-1002":  ErrMissingArgument,
	}
	for code, err := range sentinels {
		assert.Equal(t, code, err.Code)
		assert.NotEmpty(t, err.Message, code)
	}
}
