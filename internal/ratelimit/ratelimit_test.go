package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reouo/bilifeed/internal/logger"
	"github.com/reouo/bilifeed/internal/ratelimit"
)

func TestLimiterAllowsBurstOfOne(t *testing.T) {
	limiter := ratelimit.New(time.Minute, logger.NewNoOp())

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestLimiterWaitHonorsContext(t *testing.T) {
	limiter := ratelimit.New(time.Minute, logger.NewNoOp())
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// The bucket is empty and refills once a minute; the wait must give up
	// with the context instead of blocking.
	require.Error(t, limiter.Wait(ctx))
}

func TestNewDefaultsInterval(t *testing.T) {
	limiter := ratelimit.New(0, logger.NewNoOp())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())
}

func TestNopNeverBlocks(t *testing.T) {
	require.NoError(t, ratelimit.Nop{}.Wait(context.Background()))
}
