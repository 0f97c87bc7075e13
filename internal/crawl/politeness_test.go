package crawl

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerPauseControllerHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pauser := &timerPauseController{}
	start := time.Now()
	pauser.Pause(ctx, 5*time.Second)
	require.Less(t, time.Since(start), time.Second, "pause should exit immediately when context is done")
}

func TestStopLatch(t *testing.T) {
	latch := newStopLatch()
	require.False(t, latch.Stopped())

	latch.Trigger()
	latch.Trigger()
	require.True(t, latch.Stopped())

	select {
	case <-latch.Done():
	default:
		t.Fatal("Done channel should be closed after Trigger")
	}
}
