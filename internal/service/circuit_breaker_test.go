package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/bma-crm/commhub/internal/config"
	"github.com/bma-crm/commhub/internal/service"
)

func breakerConfig() *config.CircuitBreakerConfig {
	return &config.CircuitBreakerConfig{
		MaxRequests:      3,
		Interval:         10,
		Timeout:          60,
		FailureRatio:     0.6,
		ConsecutiveFails: 5,
	}
}

func TestCircuitBreaker_Execute_Success(t *testing.T) {
	tests := []struct {
		name     string
		function func() error
		wantErr  bool
	}{
		{
			name:     "successful execution",
			function: func() error { return nil },
			wantErr:  false,
		},
		{
			name: "successful execution with delay",
			function: func() error {
				time.Sleep(10 * time.Millisecond)
				return nil
			},
			wantErr: false,
		},
		{
			name:     "failed execution",
			function: func() error { return errors.New("provider error") },
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := service.NewCircuitBreaker(breakerConfig(), zap.NewNop())

			err := cb.Execute(context.Background(), tt.function)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := service.NewCircuitBreaker(breakerConfig(), zap.NewNop())

	for i := 0; i < 5; i++ {
		_ = cb.Execute(context.Background(), func() error {
			return errors.New("provider error")
		})
	}

	assert.Equal(t, service.BreakerOpen, cb.GetState())

	// Open breaker rejects without invoking the function.
	called := false
	err := cb.Execute(context.Background(), func() error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestCircuitBreaker_CanceledContext(t *testing.T) {
	cb := service.NewCircuitBreaker(breakerConfig(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCircuitBreaker_GetCounts(t *testing.T) {
	cb := service.NewCircuitBreaker(breakerConfig(), zap.NewNop())

	_ = cb.Execute(context.Background(), func() error { return nil })
	_ = cb.Execute(context.Background(), func() error { return errors.New("provider error") })

	requests, failures := cb.GetCounts()
	assert.Equal(t, uint32(2), requests)
	assert.Equal(t, uint32(1), failures)
}
