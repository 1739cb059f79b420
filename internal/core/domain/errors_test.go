package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Uniqueness tests that all sentinel errors are distinct
func TestErrors_Uniqueness(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnknownSetting,
		ErrNotInitialized,
		ErrDisposed,
		ErrProviderNotFound,
		ErrBaseURLNotEditable,
		ErrLLMUnavailable,
		ErrRateLimited,
	}

	for i, err1 := range allErrors {
		assert.NotEmpty(t, err1.Error())
		for j, err2 := range allErrors {
			if i != j {
				assert.False(t, errors.Is(err1, err2),
					"Error %v should not match error %v", err1, err2)
			}
		}
	}
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &TransportError{Op: "persist", Err: cause}

	assert.Equal(t, "persist: transport failure: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestDomainError(t *testing.T) {
	err := NewDomainError("Provider '%s' not found", "nope")

	assert.Equal(t, "Provider 'nope' not found", err.Error())

	var de *DomainError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &de))
	assert.Equal(t, "Provider 'nope' not found", de.Message)
}

func TestInitError(t *testing.T) {
	err := &InitError{Err: &TransportError{Op: "get_settings", Err: context.DeadlineExceeded}}

	assert.Contains(t, err.Error(), "initializing settings")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	var te *TransportError
	assert.True(t, errors.As(err, &te))
}

func TestAsBoundaryError(t *testing.T) {
	domainErr := NewDomainError("rejected")
	transportErr := &TransportError{Op: "x", Err: errors.New("boom")}
	plain := errors.New("socket closed")

	tests := []struct {
		name          string
		err           error
		wantTransport bool
		wantSame      bool
	}{
		{name: "nil", err: nil},
		{name: "domain error passes through", err: domainErr, wantSame: true},
		{name: "wrapped domain error passes through", err: fmt.Errorf("ctx: %w", domainErr), wantSame: true},
		{name: "transport error passes through", err: transportErr, wantTransport: true, wantSame: true},
		{name: "schema error passes through", err: fmt.Errorf("%w: x", ErrUnknownSetting), wantSame: true},
		{name: "plain error becomes transport", err: plain, wantTransport: true},
		{name: "context error becomes transport", err: context.Canceled, wantTransport: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AsBoundaryError("persist", tt.err)
			if tt.err == nil {
				assert.NoError(t, got)
				return
			}
			if tt.wantSame {
				assert.Same(t, tt.err, got)
			}
			var te *TransportError
			assert.Equal(t, tt.wantTransport, errors.As(got, &te))
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
