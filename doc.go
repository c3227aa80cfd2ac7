// Package lifepool manages bounded pools of reusable items with deferred,
// cancellable destruction.
//
// # Architecture
//
// lifepool is built from small packages that stack on each other:
//
//   - scheduler: keyed deferred actions over a pluggable timer. A LoopTimer is
//     drained cooperatively by Tick; a RealTimer fires on runtime timers.
//   - pool: Pool[T] partitions items into idle, in-use and pending
//     destruction; Table[T] maps names to lazily created pools.
//   - cache: a bounded single-instance cache of named resources.
//   - registry: routes (name, category) keys to the pools and the cache,
//     fabricates items on demand and drives the timer.
//
// # Lifecycle of an item
//
// An item handed out by a pool is in use. Recycling returns it to idle.
// Requesting destruction, or being evicted because the pool is over
// capacity, moves it to pending destruction: its teardown runs once the
// grace delay elapses unless a request for the same pool rescues it first.
// Pending items are handed out before idle ones.
//
// # Quick Start
//
//	import (
//	    "github.com/ajitpratap0/lifepool/pkg/config"
//	    "github.com/ajitpratap0/lifepool/pkg/registry"
//	)
//
//	cfg := config.Default()
//	cfg.Pools.Capacities["enemy"] = 3
//
//	reg, err := registry.New[*Enemy, *Sprite](cfg, registry.Collaborators[*Enemy, *Sprite]{
//	    ItemFactory:  registry.FactoryFunc[*Enemy](newEnemy),
//	    ItemExecutor: pool.DestroyFunc[*Enemy](func(e *Enemy) { e.Free() }),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	go reg.Run(ctx)
//	defer reg.Close(ctx)
//
//	e, err := reg.Load(ctx, registry.ItemKey("enemy"))
//	// ...
//	reg.Recycle(registry.ItemKey("enemy"), e)
//
// # Command line
//
// The lifepool binary validates configuration, replays an eviction and
// rescue scenario on a simulated clock, and runs a concurrent demo workload:
//
//	lifepool config print --config lifepool.yaml
//	lifepool inspect --pool enemy --json
//	lifepool demo --workers 8 --metrics-addr :9090
package lifepool
