// Package pool implements bounded, named object pools with deferred
// destruction. It is the core of lifepool: callers ask a pool for an item,
// get back an existing instance or a signal to fabricate one, return items
// for reuse, and request destruction that only happens after a grace period
// during which the item can still be rescued.
//
// Architecture
//
// Every tracked item is in exactly one of three collections:
//
//   - idle: returned items, retrieved most-recently-returned first (LIFO)
//   - in use: items handed out to callers
//   - pending destruction: items waiting out their grace period (FIFO)
//
// Only idle and in-use items count against a pool's capacity. When a
// pool goes over capacity it evicts the earliest-inserted idle item into
// pending destruction, which is insertion order rather than recency of use.
// An evicted item stays rescuable until its grace period elapses.
//
// Core Types:
//
//   - Pool[T]: one named pool of interchangeable items
//   - Table[T]: name -> Pool[T], created lazily on first reference
//   - DestroyExecutor[T]: the only way an item is actually torn down
//
// Deferred destruction
//
// Pools schedule teardown through a scheduler.Scheduler keyed by TaskKey
// (pool name + item). Pending items are always handed out before idle ones,
// which cancels their scheduled teardown:
//
//	p.RequestDestroy(enemy)     // pending, teardown in 10s
//	item, ok := p.GetObject()   // item == enemy, teardown cancelled
//
// When the deferred teardown fires it re-checks under the pool lock that the
// item is still pending for the same request before calling the executor,
// so a rescue that races a timer never loses the item.
//
// Concurrency
//
// Each Pool serializes its operations and its timer callbacks behind one
// mutex; different pools are independent. The DestroyExecutor is invoked
// while that mutex is held and must not call back into the same pool.
//
// Usage Patterns
//
//	timer := scheduler.NewLoopTimer(nil)
//	table := pool.NewTable[*Enemy](timer, pool.DestroyFunc[*Enemy](despawn),
//	    pool.WithDefaultCapacity(10),
//	    pool.WithGraceDelay(10*time.Second))
//
//	enemy, ok := table.Load("enemy")
//	if !ok {
//	    enemy = spawn("enemy")
//	    table.Register("enemy", enemy)
//	}
//	...
//	table.Recycle("enemy", enemy)
//
//	// drive deferred teardown from the owning loop
//	timer.Tick()
package pool
