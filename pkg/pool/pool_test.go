package pool

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lifepool/pkg/scheduler"
	"github.com/ajitpratap0/lifepool/pkg/testutil"
)

const grace = 10 * time.Second

type fixture struct {
	pool  *Pool[*testutil.Item]
	exec  *testutil.RecordingExecutor[*testutil.Item]
	timer *scheduler.LoopTimer
	clock *scheduler.ManualClock
}

func newFixture(t *testing.T, name string, capacity int) *fixture {
	t.Helper()
	clock := scheduler.NewManualClock(testutil.Epoch)
	timer := scheduler.NewLoopTimer(clock.Now)
	sched := scheduler.New[TaskKey[*testutil.Item]](timer, scheduler.WithLogger(testutil.TestLogger(t)))
	exec := &testutil.RecordingExecutor[*testutil.Item]{}
	p := NewPool[*testutil.Item](name, sched, exec,
		WithCapacity(capacity),
		WithGraceDelay(grace),
		WithLogger(testutil.TestLogger(t)))
	return &fixture{pool: p, exec: exec, timer: timer, clock: clock}
}

func (f *fixture) advance(d time.Duration) {
	f.clock.Advance(d)
	f.timer.Tick()
}

// assertPartition checks that every tracked item sits in exactly one collection.
func assertPartition(t *testing.T, p *Pool[*testutil.Item]) {
	t.Helper()
	idle, inUse, pending := p.Items()
	seen := make(map[*testutil.Item]ItemState)
	for state, set := range map[ItemState][]*testutil.Item{
		StateIdle:               idle,
		StateInUse:              inUse,
		StatePendingDestruction: pending,
	} {
		for _, item := range set {
			prev, dup := seen[item]
			require.Falsef(t, dup, "%s is both %s and %s", item, prev, state)
			seen[item] = state
			st, ok := p.State(item)
			require.True(t, ok)
			assert.Equal(t, state, st)
		}
	}
}

func TestGetObjectEmptyPool(t *testing.T) {
	f := newFixture(t, "bullet", 3)

	item, ok := f.pool.GetObject()
	assert.False(t, ok)
	assert.Nil(t, item)
	assert.Equal(t, int64(1), f.pool.Stats().Misses)
}

func TestGetObjectReturnsMostRecentlyRecycled(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	items := testutil.NewItems("b", 2)

	f.pool.RecycleObject(items[0])
	f.pool.RecycleObject(items[1])

	got, ok := f.pool.GetObject()
	require.True(t, ok)
	assert.Same(t, items[1], got)

	st, _ := f.pool.State(got)
	assert.Equal(t, StateInUse, st)
}

func TestRegisterAndRecycle(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}

	f.pool.Register(item)
	st, ok := f.pool.State(item)
	require.True(t, ok)
	assert.Equal(t, StateInUse, st)

	f.pool.RecycleObject(item)
	st, _ = f.pool.State(item)
	assert.Equal(t, StateIdle, st)
	assertPartition(t, f.pool)
}

func TestRecycleIdleItemIsNoop(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}

	f.pool.RecycleObject(item)
	f.pool.RecycleObject(item)

	idle, _, _ := f.pool.Items()
	assert.Len(t, idle, 1)
}

func TestCapacityEvictsEarliestIdle(t *testing.T) {
	f := newFixture(t, "enemy", 3)
	items := testutil.NewItems("I", 4)

	for _, it := range items {
		f.pool.RecycleObject(it)
	}

	idle, _, pending := f.pool.Items()
	assert.Equal(t, items[1:], idle)
	assert.Equal(t, []*testutil.Item{items[0]}, pending)
	assert.Equal(t, int64(1), f.pool.Stats().Evictions)
	assertPartition(t, f.pool)
}

func TestEnemyEvictionAndRescue(t *testing.T) {
	f := newFixture(t, "enemy", 3)
	items := testutil.NewItems("I", 4)

	for _, it := range items {
		f.pool.RecycleObject(it)
	}
	st, _ := f.pool.State(items[0])
	require.Equal(t, StatePendingDestruction, st)

	f.advance(grace / 2)
	got, ok := f.pool.GetObject()
	require.True(t, ok)
	assert.Same(t, items[0], got, "pending items are handed out first")

	st, _ = f.pool.State(items[0])
	assert.Equal(t, StateInUse, st)

	f.advance(grace)
	assert.Zero(t, f.exec.Count(items[0]))
	assert.Equal(t, int64(1), f.pool.Stats().Rescues)
	assertPartition(t, f.pool)
}

func TestRequestDestroyFiresOnce(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}
	f.pool.Register(item)

	f.pool.RequestDestroy(item)
	f.advance(grace - time.Second)
	assert.Zero(t, f.exec.Count(item))

	f.advance(time.Second)
	assert.Equal(t, 1, f.exec.Count(item))
	_, tracked := f.pool.State(item)
	assert.False(t, tracked)

	f.advance(grace)
	assert.Equal(t, 1, f.exec.Count(item))
}

func TestRequestDestroyTwiceKeepsDeadline(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}
	f.pool.Register(item)

	f.pool.RequestDestroy(item)
	f.advance(5 * time.Second)
	f.pool.RequestDestroy(item)
	f.advance(5 * time.Second)

	assert.Equal(t, 1, f.exec.Count(item))
}

func TestRequestDestroyUntrackedItem(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "stray"}

	f.pool.RequestDestroy(item)
	st, ok := f.pool.State(item)
	require.True(t, ok)
	assert.Equal(t, StatePendingDestruction, st)

	f.advance(grace)
	assert.Equal(t, 1, f.exec.Count(item))
}

func TestRecycleRescuesPendingItem(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}
	f.pool.Register(item)
	f.pool.RequestDestroy(item)

	f.pool.RecycleObject(item)
	f.advance(grace)

	assert.Zero(t, f.exec.Count(item))
	st, _ := f.pool.State(item)
	assert.Equal(t, StateIdle, st)
}

func TestRescueThenDestroyAgainUsesNewDeadline(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}
	f.pool.Register(item)

	f.pool.RequestDestroy(item)
	f.advance(8 * time.Second)
	_, ok := f.pool.GetObject()
	require.True(t, ok)
	f.pool.RequestDestroy(item)

	f.advance(5 * time.Second)
	assert.Zero(t, f.exec.Count(item), "old deadline must not destroy the re-requested item")

	f.advance(5 * time.Second)
	assert.Equal(t, 1, f.exec.Count(item))
}

func TestDestroyImmediatelyIsIdempotent(t *testing.T) {
	f := newFixture(t, "bullet", 3)
	item := &testutil.Item{Name: "b1"}
	f.pool.Register(item)
	f.pool.RequestDestroy(item)

	assert.True(t, f.pool.DestroyImmediately(item))
	assert.False(t, f.pool.DestroyImmediately(item))
	assert.Equal(t, 1, f.exec.Count(item))

	f.advance(grace)
	assert.Equal(t, 1, f.exec.Count(item), "cancelled teardown must not fire")
}

func TestDestroyAll(t *testing.T) {
	f := newFixture(t, "bullet", 5)
	items := testutil.NewItems("b", 3)
	f.pool.RecycleObject(items[0])
	f.pool.Register(items[1])
	f.pool.RequestDestroy(items[2])

	assert.Equal(t, 3, f.pool.DestroyAll())
	for _, it := range items {
		assert.Equal(t, 1, f.exec.Count(it))
	}
	st := f.pool.Stats()
	assert.Zero(t, st.Idle+st.InUse+st.Pending)

	f.advance(grace)
	assert.Len(t, f.exec.Destroyed(), 3)

	// The pool keeps working.
	f.pool.RecycleObject(items[0])
	got, ok := f.pool.GetObject()
	require.True(t, ok)
	assert.Same(t, items[0], got)
}

func TestSweepOldest(t *testing.T) {
	f := newFixture(t, "bullet", 5)
	items := testutil.NewItems("b", 2)
	f.pool.RecycleObject(items[0])
	f.pool.RecycleObject(items[1])

	assert.True(t, f.pool.SweepOldest())
	st, _ := f.pool.State(items[0])
	assert.Equal(t, StatePendingDestruction, st)

	f.advance(grace)
	assert.Equal(t, []*testutil.Item{items[0]}, f.exec.Destroyed())

	assert.True(t, f.pool.SweepOldest())
	assert.False(t, f.pool.SweepOldest())
}

func TestInvalidCapacityFallsBackToDefault(t *testing.T) {
	log, logs := testutil.ObservedLogger()
	sched := scheduler.New[TaskKey[int]](scheduler.NewLoopTimer(nil))
	p := NewPool[int]("p", sched, nil, WithCapacity(0), WithLogger(log))

	assert.Equal(t, DefaultCapacity, p.Capacity())
	assert.Equal(t, 2, logs.Len(), "capacity and executor warnings")
}

func TestInUseBeyondCapacity(t *testing.T) {
	f := newFixture(t, "bullet", 2)
	items := testutil.NewItems("b", 3)
	for _, it := range items {
		f.pool.Register(it)
	}

	st := f.pool.Stats()
	assert.Equal(t, 3, st.InUse, "items held by callers are never evicted")
	assert.Zero(t, st.Evictions)

	f.pool.RecycleObject(items[0])
	st = f.pool.Stats()
	assert.Equal(t, 0, st.Idle)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, int64(1), st.Evictions)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	const capacity = 4
	f := newFixture(t, "fuzz", capacity)
	items := testutil.NewItems("x", 10)
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 2000; i++ {
		item := items[rng.Intn(len(items))]
		switch rng.Intn(6) {
		case 0:
			f.pool.GetObject()
		case 1:
			f.pool.RecycleObject(item)
		case 2:
			f.pool.RequestDestroy(item)
		case 3:
			f.pool.Register(item)
		case 4:
			f.pool.DestroyImmediately(item)
		case 5:
			f.advance(time.Duration(rng.Intn(4)) * time.Second)
		}

		assertPartition(t, f.pool)
		st := f.pool.Stats()
		if st.Idle > 0 {
			require.LessOrEqual(t, st.Idle+st.InUse, capacity)
		}
	}
}
