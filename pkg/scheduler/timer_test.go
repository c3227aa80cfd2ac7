package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestLoopTimerFiresInDeadlineOrder(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	var order []string
	timer.Schedule(3*time.Second, func() { order = append(order, "c") })
	timer.Schedule(1*time.Second, func() { order = append(order, "a") })
	timer.Schedule(2*time.Second, func() { order = append(order, "b") })

	assert.Equal(t, 0, timer.Tick())
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2, timer.Tick())
	assert.Equal(t, []string{"a", "b"}, order)

	clock.Advance(time.Second)
	assert.Equal(t, 1, timer.Tick())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, timer.Len())
}

func TestLoopTimerTiesFireInScheduleOrder(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		timer.Schedule(time.Second, func() { order = append(order, i) })
	}
	clock.Advance(time.Second)
	timer.Tick()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoopTimerCancel(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	fired := false
	h := timer.Schedule(time.Second, func() { fired = true })

	assert.True(t, timer.Cancel(h))
	assert.False(t, timer.Cancel(h))
	clock.Advance(time.Minute)
	assert.Equal(t, 0, timer.Tick())
	assert.False(t, fired)
}

func TestLoopTimerCancelFromEarlierCallback(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	secondFired := false
	var second TimerHandle
	timer.Schedule(time.Second, func() { timer.Cancel(second) })
	second = timer.Schedule(2*time.Second, func() { secondFired = true })

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, timer.Tick())
	assert.False(t, secondFired)
}

func TestLoopTimerCallbackSchedulesForNextTick(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	count := 0
	var again func()
	again = func() {
		count++
		timer.Schedule(0, again)
	}
	timer.Schedule(0, again)

	assert.Equal(t, 1, timer.Tick())
	assert.Equal(t, 1, timer.Tick())
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, timer.Len())
}

func TestLoopTimerNext(t *testing.T) {
	clock := NewManualClock(epoch)
	timer := NewLoopTimer(clock.Now)

	_, ok := timer.Next()
	assert.False(t, ok)

	timer.Schedule(10*time.Second, func() {})
	next, ok := timer.Next()
	require.True(t, ok)
	assert.Equal(t, epoch.Add(10*time.Second), next)
}

func TestRealTimerFiresAndCancels(t *testing.T) {
	timer := NewRealTimer()
	defer timer.Stop()

	var fired atomic.Int32
	timer.Schedule(5*time.Millisecond, func() { fired.Add(1) })
	h := timer.Schedule(time.Hour, func() { fired.Add(100) })

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.True(t, timer.Cancel(h))
	assert.False(t, timer.Cancel(h))
	assert.Equal(t, 0, timer.Len())
}

func TestRealTimerStop(t *testing.T) {
	timer := NewRealTimer()

	var fired atomic.Bool
	timer.Schedule(20*time.Millisecond, func() { fired.Store(true) })
	timer.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}
