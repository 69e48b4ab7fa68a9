package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacer_SleepHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := NewPacer().Sleep(ctx, 10*time.Second, 20*time.Second)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacer_SleepCompletesShortWaits(t *testing.T) {
	err := NewPacer().Sleep(context.Background(), time.Millisecond, 2*time.Millisecond)
	assert.NoError(t, err)
}

func TestPacer_SleepUsesLowerBoundWhenRangeInverted(t *testing.T) {
	start := time.Now()
	err := NewPacer().Sleep(context.Background(), 5*time.Millisecond, 0)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestPacer_BurstActionsDoNotBlock(t *testing.T) {
	pacer := NewPacer()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The token bucket starts with a small burst allowance
	for i := 0; i < 3; i++ {
		require.NoError(t, pacer.WaitAction(ctx))
	}
}
