package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, uint32(5), cb.maxRequests)
	assert.Equal(t, uint32(20), cb.minRequests)
	assert.Equal(t, uint32(5), cb.consecutiveTrip)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedResult := "success"
	result, err := cb.Execute(ctx, func() (any, error) {
		return expectedResult, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, expectedResult, result)
	assert.Equal(t, StateClosed, cb.state)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()

	expectedError := errors.New("test error")
	result, err := cb.Execute(ctx, func() (any, error) {
		return nil, expectedError
	})

	assert.Error(t, err)
	assert.Equal(t, expectedError, err)
	assert.Nil(t, result)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(0), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()
	boom := errors.New("down")

	for i := 0; i < int(cb.consecutiveTrip); i++ {
		_, err := cb.Execute(ctx, func() (any, error) { return nil, boom })
		assert.Equal(t, boom, err)
	}

	assert.Equal(t, StateOpen, cb.state)

	// Open breaker rejects without invoking the request
	invoked := false
	_, err := cb.Execute(ctx, func() (any, error) {
		invoked = true
		return nil, nil
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.False(t, invoked)
}

func TestCircuitBreaker_SuccessResetsConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker("test")
	ctx := context.Background()
	boom := errors.New("down")

	for i := 0; i < int(cb.consecutiveTrip)-1; i++ {
		cb.Execute(ctx, func() (any, error) { return nil, boom })
	}
	cb.Execute(ctx, func() (any, error) { return nil, nil })
	cb.Execute(ctx, func() (any, error) { return nil, boom })

	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_HalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.timeout = 10 * time.Millisecond
	ctx := context.Background()
	boom := errors.New("down")

	for i := 0; i < int(cb.consecutiveTrip); i++ {
		cb.Execute(ctx, func() (any, error) { return nil, boom })
	}
	require.Equal(t, StateOpen, cb.state)

	time.Sleep(20 * time.Millisecond)

	// A probe is allowed through and a success closes the breaker
	_, err := cb.Execute(ctx, func() (any, error) { return "ok", nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.state)
}

// Random Code Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(16)
	require.NoError(t, err)

	// hex doubles the byte count
	assert.Len(t, code, 32)
	assert.Regexp(t, "^[0-9A-F]+$", code)

	other, err := GenerateCode(16)
	require.NoError(t, err)
	assert.NotEqual(t, code, other)
}

func TestGenerateCode_Zero(t *testing.T) {
	code, err := GenerateCode(0)
	require.NoError(t, err)
	assert.Empty(t, code)
}
