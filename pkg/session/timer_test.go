package session

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerRearmKeepsOnePendingCallback(t *testing.T) {
	var fired int32
	tm := NewTimer(func() { atomic.AddInt32(&fired, 1) })

	tm.Arm(30 * time.Millisecond)
	tm.Arm(30 * time.Millisecond)
	tm.Arm(30 * time.Millisecond)
	require.True(t, tm.Pending())

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
	require.False(t, tm.Pending())
	require.Never(t, func() bool {
		return atomic.LoadInt32(&fired) > 1
	}, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTimerStopCancels(t *testing.T) {
	var fired int32
	tm := NewTimer(func() { atomic.AddInt32(&fired, 1) })

	require.False(t, tm.Stop())
	tm.Arm(20 * time.Millisecond)
	require.True(t, tm.Stop())
	require.Never(t, func() bool {
		return atomic.LoadInt32(&fired) > 0
	}, 80*time.Millisecond, 10*time.Millisecond)
}

func TestTimerDropsStaleFire(t *testing.T) {
	var fired int32
	tm := NewTimer(func() { atomic.AddInt32(&fired, 1) })
	tm.Arm(time.Hour)

	tm.mu.Lock()
	stale := tm.seq
	tm.mu.Unlock()
	tm.Arm(time.Hour)

	tm.fire(stale)
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))
	require.True(t, tm.Pending())
	tm.Stop()
}

func TestIdleTimerResetPostponesFiring(t *testing.T) {
	var fired int32
	it := NewIdleTimer(100*time.Millisecond, func() { atomic.AddInt32(&fired, 1) })
	require.Equal(t, 100*time.Millisecond, it.Timeout())

	it.Reset()
	for i := 0; i < 5; i++ {
		time.Sleep(40 * time.Millisecond)
		it.Reset()
	}
	require.Equal(t, int32(0), atomic.LoadInt32(&fired))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fired) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestInstructionCountdown(t *testing.T) {
	require.Equal(t, 5*time.Second, Instruction{Timer: 5}.Countdown(time.Second))
	require.Equal(t, 1500*time.Millisecond, Instruction{Timer: 1.5}.Countdown(time.Second))
	require.Equal(t, time.Duration(0), Instruction{Timer: -2}.Countdown(time.Second))
}
