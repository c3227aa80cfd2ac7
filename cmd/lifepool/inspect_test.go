package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/lifepool/pkg/config"
	"github.com/ajitpratap0/lifepool/pkg/testutil"
)

func TestRunInspectScenario(t *testing.T) {
	cfg := config.Default()
	cfg.Pools.Capacities["enemy"] = 3

	steps, err := runInspect(context.Background(), cfg, testutil.TestLogger(t), "enemy", 0)
	require.NoError(t, err)
	require.Len(t, steps, 4)

	recycled := steps[1].Snapshot.Items[0]
	assert.Equal(t, 3, recycled.Idle)
	assert.Equal(t, 1, recycled.Pending)

	rescued := steps[2].Snapshot.Items[0]
	assert.Equal(t, int64(1), rescued.Rescues)
	assert.Equal(t, 1, rescued.InUse)

	final := steps[3].Snapshot.Items[0]
	assert.Equal(t, int64(1), final.Destroyed, "the item evicted by the rescue is torn down")
	assert.Zero(t, final.Pending)
}

func TestDemoWorkload(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.SweepEnabled = false
	opts := &demoOptions{workers: 3, iterations: 200, grace: 0, settle: 0, seed: 7}
	cfg.Pools.GraceDelay = 0

	require.NoError(t, runDemo(context.Background(), cfg, testutil.TestLogger(t), opts))
}
