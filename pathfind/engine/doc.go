// Package engine implements an observable A* search over a 2D grid.
//
// An Engine owns a fixed-size Grid of SearchNodes plus a start and a
// destination cell. Callers edit walls and endpoints, then run CalcPath on
// a goroutine of their choosing and watch it through an EventSink or by
// polling the read accessors.
//
// Cost model:
//
// Cardinal steps cost 10 and diagonal steps 14 by default. The h-cost is
// the Euclidean distance to the destination scaled by the cardinal cost and
// truncated, or the octile distance when CostModel.Heuristic is Octile.
// Frontier ties are broken by lower h-cost, then by discovery order.
//
// Run control:
//
//	eng, err := engine.New(30, 30, engine.WithDestination(engine.Coordinate{X: 29, Y: 29}))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	go eng.CalcPath(ctx, engine.RunOptions{StepDelay: 20 * time.Millisecond, Sink: sink})
//
//	eng.Pause()  // worker blocks after its current step
//	eng.SetBlock(engine.Coordinate{X: 3, Y: 4}, true)
//	eng.Resume()
//	eng.Stop()   // ends the run with OutcomeStopped
//
// Backpointers are arena indices. Each one points at a node that was
// expanded strictly earlier, which the backtrace verifies before a path
// is published.
package engine
