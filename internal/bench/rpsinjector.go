package bench

import (
	"sync/atomic"
	"time"

	"github.com/yhtzd/schbench/internal/clock"
	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/obslog"
)

const usecPerSec = 1_000_000

// RunRpsInjector paces request injection at cfg's current per-message-
// thread target rate, round-robin across workers, until stopping is set
// (spec.md §4.8). Round robin position is kept across seconds so that
// pending-based skips still rotate which worker is shorted.
func RunRpsInjector(stopping *atomic.Bool, cfg *config.Config, workers []*WorkerState) {
	cur := 0
	for {
		start := clock.NowUsec()

		if r := cfg.RequestsPerSec(); r > 0 {
			sleepTime := time.Duration(usecPerSec/r*rpsBatchSize) * time.Microsecond
			for i := int64(1); i <= r; i++ {
				w := workers[cur%len(workers)]
				cur++

				tryInject(w)

				if i%rpsBatchSize == 0 {
					time.Sleep(sleepTime)
				}
			}
		}

		catchUpToOneSecond(start, cfg)

		if stopping.Load() {
			for _, w := range workers {
				w.gate.Post()
			}
			return
		}
	}
}

// tryInject injects a single Request onto w unless w is already over the
// backpressure limit (spec.md §4.8: "don't queue more" once pending>8). It
// reports whether an injection happened, for tests.
func tryInject(w *WorkerState) bool {
	if w.pending.Load() > pendingBackpressureLimit {
		return false
	}
	w.pending.Add(1)
	now := clock.NowUsec()
	w.requests.Push(&Request{StartUsec: now})
	w.wakeTimeAt.Store(now)
	w.gate.Post()
	return true
}

// catchUpToOneSecond sleeps in a loop until one full second has elapsed
// since start, recomputing the remaining delta each time. If the injector
// is already behind on entry (delta >= 1s) it returns immediately without
// sleeping, logging a warning when delta is over 1s, resolving the "falling
// behind" open question in spec.md §9. Overshoot from its own sleeps is not
// reported.
func catchUpToOneSecond(start uint64, cfg *config.Config) {
	slept := false
	for {
		now := clock.NowUsec()
		delta, _ := clock.DeltaUsec(start, now)
		if delta >= usecPerSec {
			if !slept && delta > usecPerSec {
				obslog.Get().Warn().
					Uint64("over_usec", delta-usecPerSec).
					Int64("target_rps", cfg.RequestsPerSec()).
					Msg("rps injector falling behind target rate")
			}
			return
		}
		time.Sleep(time.Duration(usecPerSec-delta) * time.Microsecond)
		slept = true
	}
}
