package session

import (
	"sync"
	"time"
)

// Timer is a single deferred action. Arming cancels whatever was pending, so at
// most one callback is ever outstanding. A callback that already fired but lost
// the race against a re-arm is dropped via the sequence number.
type Timer struct {
	mu    sync.Mutex
	fn    func()
	timer *time.Timer
	seq   uint64
}

func NewTimer(fn func()) *Timer {
	return &Timer{fn: fn}
}

// Arm schedules fn after d, replacing any pending schedule.
func (t *Timer) Arm(d time.Duration) {
	if t == nil {
		return
	}
	if d < 0 {
		d = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.seq++
	seq := t.seq
	t.timer = time.AfterFunc(d, func() { t.fire(seq) })
}

// Stop cancels the pending schedule and reports whether one existed.
func (t *Timer) Stop() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	pending := t.timer != nil
	t.stopLocked()
	t.seq++
	return pending
}

func (t *Timer) Pending() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.timer != nil
}

func (t *Timer) stopLocked() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Timer) fire(seq uint64) {
	t.mu.Lock()
	if seq != t.seq || t.timer == nil {
		t.mu.Unlock()
		return
	}
	t.timer = nil
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// IdleTimer is a Timer with a fixed timeout, rearmed on every qualifying interaction.
type IdleTimer struct {
	*Timer
	timeout time.Duration
}

func NewIdleTimer(timeout time.Duration, onIdle func()) *IdleTimer {
	return &IdleTimer{Timer: NewTimer(onIdle), timeout: timeout}
}

// Reset cancels the pending countdown and starts a fresh one.
func (it *IdleTimer) Reset() {
	if it == nil || it.timeout <= 0 {
		return
	}
	it.Arm(it.timeout)
}

func (it *IdleTimer) Timeout() time.Duration {
	return it.timeout
}
