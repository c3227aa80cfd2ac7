package main

import (
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/lifepool/pkg/config"
	"github.com/ajitpratap0/lifepool/pkg/registry"
	"github.com/ajitpratap0/lifepool/pkg/scheduler"
)

type inspectItem struct {
	Name string `json:"name"`
}

func (i *inspectItem) String() string { return i.Name }

type inspectStep struct {
	Step     string            `json:"step"`
	Elapsed  string            `json:"elapsed"`
	Snapshot registry.Snapshot `json:"snapshot"`
}

func newInspectCmd(flags *globalFlags) *cobra.Command {
	var (
		name   string
		items  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Replay an eviction and rescue scenario on a simulated clock",
		Long: `Recycle more items into one pool than it can hold, rescue the evicted
item before its grace period ends, then let the clock run out. Each step
prints the registry snapshot.

Example:
  lifepool inspect --pool enemy --items 4 --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(flags)
			if err != nil {
				return err
			}
			steps, err := runInspect(cmd.Context(), cfg, log, name, items)
			if err != nil {
				return err
			}
			return printSteps(steps, asJSON, log)
		},
	}
	cmd.Flags().StringVar(&name, "pool", "enemy", "Pool to exercise")
	cmd.Flags().IntVar(&items, "items", 0, "Items to recycle (default capacity+1)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print snapshots as JSON")
	return cmd
}

func runInspect(ctx context.Context, cfg *config.Config, log *zap.Logger, name string, n int) ([]inspectStep, error) {
	clock := scheduler.NewManualClock(time.Unix(0, 0).UTC())
	timer := scheduler.NewLoopTimer(clock.Now)
	start := clock.Now()

	seq := 0
	reg, err := registry.New[*inspectItem, string](cfg, registry.Collaborators[*inspectItem, string]{
		ItemFactory: registry.FactoryFunc[*inspectItem](func(_ context.Context, pool string) (*inspectItem, error) {
			seq++
			return &inspectItem{Name: fmt.Sprintf("%s-%d", pool, seq)}, nil
		}),
	}, registry.WithTimer(timer), registry.WithLogger(log))
	if err != nil {
		return nil, err
	}
	defer func() { _ = reg.Close(ctx) }()

	key := registry.ItemKey(name)
	if n <= 0 {
		n = cfg.Pools.CapacityFor(name) + 1
	}

	var steps []inspectStep
	record := func(step string) {
		steps = append(steps, inspectStep{
			Step:     step,
			Elapsed:  clock.Now().Sub(start).String(),
			Snapshot: reg.Snapshot(),
		})
	}

	loaded := make([]*inspectItem, 0, n)
	for i := 0; i < n; i++ {
		it, err := reg.Load(ctx, key)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, it)
	}
	record(fmt.Sprintf("loaded %d items", n))

	for _, it := range loaded {
		reg.Recycle(key, it)
	}
	record("recycled every item")

	half := cfg.Pools.GraceDelay / 2
	clock.Advance(half)
	reg.Tick()
	rescued, err := reg.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	record(fmt.Sprintf("loaded %s before its grace period ended", rescued))

	clock.Advance(cfg.Pools.GraceDelay)
	reg.Tick()
	record("grace period elapsed")

	reg.Print(key)
	return steps, nil
}

func printSteps(steps []inspectStep, asJSON bool, log *zap.Logger) error {
	if asJSON {
		out, err := json.MarshalIndent(steps, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode snapshots: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}
	for _, s := range steps {
		fmt.Printf("[%s] %s\n", s.Elapsed, s.Step)
		for _, st := range s.Snapshot.Items {
			fmt.Printf("  %-10s cap=%d idle=%d in_use=%d pending=%d evictions=%d rescues=%d destroyed=%d\n",
				st.Name, st.Capacity, st.Idle, st.InUse, st.Pending, st.Evictions, st.Rescues, st.Destroyed)
		}
	}
	log.Debug("inspect finished", zap.Int("steps", len(steps)))
	return nil
}
