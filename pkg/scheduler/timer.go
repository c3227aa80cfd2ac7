package scheduler

import (
	"container/heap"
	"sync"
	"time"
)

// TimerHandle identifies a single timer registration.
type TimerHandle uint64

// TimerService runs callbacks after a delay. Cancel reports whether the
// registration was still pending; cancelling an unknown or fired handle is a
// no-op that returns false.
type TimerService interface {
	Schedule(delay time.Duration, callback func()) TimerHandle
	Cancel(h TimerHandle) bool
}

// ManualClock is a clock that only moves when told to. It is used to drive a
// LoopTimer deterministically.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock returns a clock frozen at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual time.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d and returns the new time.
func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return c.now
}

type timerEntry struct {
	handle   TimerHandle
	deadline time.Time
	callback func()
	index    int
}

type timerHeap []*timerEntry

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].deadline.Equal(h[j].deadline) {
		return h[i].handle < h[j].handle
	}
	return h[i].deadline.Before(h[j].deadline)
}

func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	e := x.(*timerEntry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// LoopTimer is a cooperative TimerService. Registrations sit in a deadline
// heap and fire only when the owner drains them with Tick or TickAt, so
// callbacks run on the draining goroutine and never concurrently with each
// other.
type LoopTimer struct {
	mu      sync.Mutex
	clock   func() time.Time
	entries timerHeap
	byID    map[TimerHandle]*timerEntry
	seq     TimerHandle
}

// NewLoopTimer creates a loop timer reading time from clock. A nil clock
// means time.Now.
func NewLoopTimer(clock func() time.Time) *LoopTimer {
	if clock == nil {
		clock = time.Now
	}
	return &LoopTimer{
		clock: clock,
		byID:  make(map[TimerHandle]*timerEntry),
	}
}

// Now returns the timer's notion of the current time.
func (t *LoopTimer) Now() time.Time {
	return t.clock()
}

// Schedule registers callback to fire once delay has elapsed on the timer's clock.
func (t *LoopTimer) Schedule(delay time.Duration, callback func()) TimerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	e := &timerEntry{
		handle:   t.seq,
		deadline: t.clock().Add(delay),
		callback: callback,
	}
	heap.Push(&t.entries, e)
	t.byID[e.handle] = e
	return e.handle
}

// Cancel removes a pending registration.
func (t *LoopTimer) Cancel(h TimerHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.byID[h]
	if !ok {
		return false
	}
	delete(t.byID, h)
	heap.Remove(&t.entries, e.index)
	return true
}

// Len returns the number of pending registrations.
func (t *LoopTimer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byID)
}

// Next returns the earliest pending deadline.
func (t *LoopTimer) Next() (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.entries) == 0 {
		return time.Time{}, false
	}
	return t.entries[0].deadline, true
}

// Tick fires every registration due at the clock's current time.
func (t *LoopTimer) Tick() int {
	return t.TickAt(t.clock())
}

// TickAt fires, in deadline order, every registration whose deadline is not
// after now. Registrations added by the callbacks themselves wait for the
// next tick. Returns the number of callbacks run.
func (t *LoopTimer) TickAt(now time.Time) int {
	t.mu.Lock()
	limit := t.seq
	t.mu.Unlock()

	fired := 0
	for {
		t.mu.Lock()
		e := t.popDue(now, limit)
		t.mu.Unlock()
		if e == nil {
			return fired
		}
		e.callback()
		fired++
	}
}

func (t *LoopTimer) popDue(now time.Time, limit TimerHandle) *timerEntry {
	if len(t.entries) == 0 || t.entries[0].deadline.After(now) {
		return nil
	}
	e := t.entries[0]
	if e.handle > limit {
		// Added during this tick; look for an older due entry behind it.
		e = nil
		for _, c := range t.entries {
			if c.handle > limit || c.deadline.After(now) {
				continue
			}
			if e == nil || c.deadline.Before(e.deadline) || (c.deadline.Equal(e.deadline) && c.handle < e.handle) {
				e = c
			}
		}
		if e == nil {
			return nil
		}
	}
	heap.Remove(&t.entries, e.index)
	delete(t.byID, e.handle)
	return e
}

// RealTimer is a TimerService backed by time.AfterFunc. Callbacks run on
// runtime timer goroutines, so whatever they touch must be synchronized.
type RealTimer struct {
	mu     sync.Mutex
	timers map[TimerHandle]*time.Timer
	seq    TimerHandle
}

// NewRealTimer creates an empty RealTimer.
func NewRealTimer() *RealTimer {
	return &RealTimer{timers: make(map[TimerHandle]*time.Timer)}
}

// Schedule arms a runtime timer for callback.
func (t *RealTimer) Schedule(delay time.Duration, callback func()) TimerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	h := t.seq
	// The callback blocks on t.mu until the handle is recorded below.
	t.timers[h] = time.AfterFunc(delay, func() {
		t.mu.Lock()
		_, ok := t.timers[h]
		delete(t.timers, h)
		t.mu.Unlock()
		if ok {
			callback()
		}
	})
	return h
}

// Cancel stops a pending timer.
func (t *RealTimer) Cancel(h TimerHandle) bool {
	t.mu.Lock()
	timer, ok := t.timers[h]
	delete(t.timers, h)
	t.mu.Unlock()
	if ok {
		timer.Stop()
	}
	return ok
}

// Len returns the number of armed timers.
func (t *RealTimer) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

// Stop cancels every armed timer.
func (t *RealTimer) Stop() {
	t.mu.Lock()
	timers := t.timers
	t.timers = make(map[TimerHandle]*time.Timer)
	t.mu.Unlock()
	for _, timer := range timers {
		timer.Stop()
	}
}

var (
	_ TimerService = (*LoopTimer)(nil)
	_ TimerService = (*RealTimer)(nil)
)
