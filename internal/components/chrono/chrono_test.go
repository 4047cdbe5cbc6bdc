package chrono

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStandardSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := StandardImpl{}.Sleep(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
	require.Less(t, time.Since(start), time.Second)
}

func TestFakeSleep(t *testing.T) {
	fake := &FakeImpl{}
	require.NoError(t, fake.Sleep(context.Background(), time.Second))
	require.NoError(t, fake.Sleep(context.Background(), 1500*time.Millisecond))
	require.Equal(t, []time.Duration{time.Second, 1500 * time.Millisecond}, fake.Sleeps)
	require.Equal(t, 2500*time.Millisecond, fake.Now().Sub(time.Time{}))
}

func TestStandardNow(t *testing.T) {
	before := time.Now()
	now := StandardImpl{}.Now()
	require.False(t, now.Before(before))
	require.WithinDuration(t, time.Now(), now, time.Second)
}
