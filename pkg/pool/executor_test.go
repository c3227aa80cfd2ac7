package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ajitpratap0/lifepool/pkg/scheduler"
	"github.com/ajitpratap0/lifepool/pkg/testutil"
)

func TestExecutorsRunInOrderAndSkipNil(t *testing.T) {
	var calls []string
	item := &testutil.Item{Name: "bullet"}

	chain := Executors[*testutil.Item]{
		DestroyFunc[*testutil.Item](func(it *testutil.Item) { calls = append(calls, "despawn "+it.Name) }),
		nil,
		DestroyFunc[*testutil.Item](func(it *testutil.Item) { calls = append(calls, "release "+it.Name) }),
	}
	chain.Destroy(item)

	assert.Equal(t, []string{"despawn bullet", "release bullet"}, calls)
}

func TestExecutorsChainAsPoolExecutor(t *testing.T) {
	clock := scheduler.NewManualClock(testutil.Epoch)
	timer := scheduler.NewLoopTimer(clock.Now)
	sched := scheduler.New[TaskKey[*testutil.Item]](timer, scheduler.WithLogger(testutil.TestLogger(t)))

	first := &testutil.RecordingExecutor[*testutil.Item]{}
	second := &testutil.RecordingExecutor[*testutil.Item]{}
	p := NewPool[*testutil.Item]("bullet", sched, Executors[*testutil.Item]{first, second},
		WithGraceDelay(grace),
		WithLogger(testutil.TestLogger(t)))

	item := &testutil.Item{Name: "bullet-1"}
	p.Register(item)
	p.RequestDestroy(item)

	clock.Advance(grace)
	timer.Tick()

	assert.Equal(t, []*testutil.Item{item}, first.Destroyed())
	assert.Equal(t, []*testutil.Item{item}, second.Destroyed())
}
