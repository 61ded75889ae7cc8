package bench

import (
	"sync/atomic"

	"github.com/yhtzd/schbench/internal/clock"
)

// RunMessageThread drives classic mode: drain the worker intake list, wake
// everyone in one batch sharing a common instant, then park until the next
// batch of workers arrives (spec.md §4.7).
func RunMessageThread(stopping *atomic.Bool, mt *MessageThreadState, pipeMode bool) {
	for {
		mt.gate.Arm()
		wakeAll(mt, pipeMode)

		if stopping.Load() {
			// A worker may have pushed itself between our drain above and
			// the stopping check; drain and wake once more so nobody is
			// left sleeping (spec.md §4.7 step 4).
			wakeAll(mt, pipeMode)
			return
		}
		mt.gate.Wait(0)
	}
}

// wakeAll drains mt's intake list and posts every drained worker's gate,
// filling in wake_time with a shared instant (or, in pipe mode, a
// per-worker instant alongside a scratch-page touch).
func wakeAll(mt *MessageThreadState, pipeMode bool) {
	list := mt.intake.Drain()
	now := clock.NowUsec()
	for cur := list; cur != nil; {
		next := mt.intake.Next(cur)
		if pipeMode {
			fillPipePage(cur.pipePage, 1)
			cur.wakeTimeAt.Store(clock.NowUsec())
		} else {
			cur.wakeTimeAt.Store(now)
		}
		cur.gate.Post()
		cur = next
	}
}
