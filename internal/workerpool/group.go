// Package workerpool spawns and tracks the cooperating goroutines a daemon
// or client runs, following the shape of the teacher's core.Invoker
// interface (referenced from pkg/mcast/core/peer.go and
// pkg/mcast/core/transport.go as InvokerInstance().Spawn(...)) and its test
// double, test.TestInvoker, which tracks spawned goroutines on a
// sync.WaitGroup.
package workerpool

import "sync"

// Group spawns goroutines and can later block until every spawned
// goroutine has returned. A daemon owns exactly one Group for its three
// workers (spec §4.D); a client doesn't need one since it runs
// single-threaded per call (spec §5).
type Group struct {
	wg sync.WaitGroup
}

// Spawn runs f in a new goroutine tracked by the group.
func (g *Group) Spawn(f func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		f()
	}()
}

// Wait blocks until every spawned goroutine has returned. Stop() on a
// daemon calls this after flipping the shared run flag and closing both
// multicast endpoints, so in-flight reads unblock before Wait returns.
func (g *Group) Wait() {
	g.wg.Wait()
}
