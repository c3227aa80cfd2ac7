package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lifepool/pkg/poolerrors"
	"github.com/ajitpratap0/lifepool/pkg/testutil"
)

func newCache(t *testing.T, capacity int) (*Cache[string], *testutil.MapProvider[string]) {
	t.Helper()
	provider := testutil.NewMapProvider(map[string]string{
		"A":   "sprite-a",
		"B":   "sprite-b",
		"C":   "sprite-c",
		"foo": "sprite-foo",
	})
	return New[string]("sprites", provider, WithCapacity(capacity), WithLogger(testutil.TestLogger(t))), provider
}

func TestLoadCachesResource(t *testing.T) {
	c, provider := newCache(t, 2)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	for i := 0; i < 5; i++ {
		r, err := c.Load(ctx, "foo")
		require.NoError(t, err)
		assert.Equal(t, "sprite-foo", r)
	}

	assert.Equal(t, 1, provider.Loads("foo"))
	st := c.Stats()
	assert.Equal(t, int64(4), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
}

func TestEvictionOrder(t *testing.T) {
	c, provider := newCache(t, 2)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	for _, name := range []string{"A", "B", "C"} {
		_, err := c.Load(ctx, name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"B", "C"}, c.Order())
	assert.False(t, c.Contains("A"))
	assert.Equal(t, []string{"A"}, provider.Unloaded())
}

func TestEvictionIsByInsertionNotAccess(t *testing.T) {
	c, _ := newCache(t, 2)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, _ = c.Load(ctx, "A")
	_, _ = c.Load(ctx, "B")
	_, _ = c.Load(ctx, "A")
	_, _ = c.Load(ctx, "C")

	assert.Equal(t, []string{"B", "C"}, c.Order())
}

func TestProviderFailureIsNotFound(t *testing.T) {
	log, logs := testutil.ObservedLogger()
	provider := testutil.NewMapProvider(map[string]string{})
	c := New[string]("sprites", provider, WithLogger(log))
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, err := c.Load(ctx, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, poolerrors.ErrNotFound))
	assert.True(t, poolerrors.IsType(err, poolerrors.ErrorTypeNotFound))
	assert.False(t, c.Contains("missing"))
	assert.Equal(t, 1, logs.FilterMessage("resource could not be loaded").Len())

	_, err = c.Load(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, 2, provider.Loads("missing"), "failures are not cached")
}

func TestConcurrentMissesCollapse(t *testing.T) {
	c, provider := newCache(t, 2)
	provider.Gate = make(chan struct{})
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]string, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := c.Load(ctx, "foo")
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(provider.Gate)
	wg.Wait()

	assert.Equal(t, 1, provider.Loads("foo"), "provider called once while entry is retained")
	for _, r := range results {
		assert.Equal(t, "sprite-foo", r)
	}
}

func TestCancelledCallerDoesNotFailOthers(t *testing.T) {
	c, provider := newCache(t, 2)
	provider.Gate = make(chan struct{})

	first, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Load(first, "foo")
		firstErr <- err
	}()
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := testutil.TestContext(t)
	defer cancel()
	second := make(chan string, 1)
	go func() {
		r, err := c.Load(ctx, "foo")
		assert.NoError(t, err)
		second <- r
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, poolerrors.IsType(err, poolerrors.ErrorTypeNotFound))

	close(provider.Gate)
	assert.Equal(t, "sprite-foo", <-second)
	assert.True(t, c.Contains("foo"))
	assert.Equal(t, 1, provider.Loads("foo"))
	assert.Zero(t, c.Stats().Failures)
}

func TestInvalidCapacityFallsBackToDefault(t *testing.T) {
	log, logs := testutil.ObservedLogger()
	c := New[string]("sprites", testutil.NewMapProvider(map[string]string{}), WithCapacity(-1), WithLogger(log))

	assert.Equal(t, DefaultCapacity, c.Stats().Capacity)
	assert.Equal(t, 1, logs.Len())
}

func TestPurge(t *testing.T) {
	c, provider := newCache(t, 3)
	ctx, cancel := testutil.TestContext(t)
	defer cancel()

	_, _ = c.Load(ctx, "A")
	_, _ = c.Load(ctx, "B")

	assert.Equal(t, 2, c.Purge(ctx))
	assert.Zero(t, c.Len())
	assert.Equal(t, []string{"A", "B"}, provider.Unloaded())
}
