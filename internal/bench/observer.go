package bench

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/yhtzd/schbench/internal/clock"
	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/histogram"
	"github.com/yhtzd/schbench/internal/obslog"
)

// Stats is the engine-wide end-of-run summary the Observer hands back to
// the Orchestrator for the final report (spec.md §6).
type Stats struct {
	Wakeup      *histogram.Histogram
	Request     *histogram.Histogram
	RPS         *histogram.Histogram
	LoopCount   uint64
	LoopRuntime uint64 // summed per-worker runtime_usec, for average ops/sec
}

// RunObserver is the 1-second-cadence loop that drives warmup, interval
// reporting, zero-resets, autoscaling, and termination (spec.md §4.10). It
// runs on the orchestrator goroutine and returns once stopping has been
// raised.
func RunObserver(cfg *config.Config, stopping *atomic.Bool, workers []*WorkerState, rpsStats *histogram.Histogram, autoscaler *Autoscaler) {
	start := clock.NowUsec()
	lastCalc := start
	lastRpsCalc := start
	zeroTime := start

	runtimeUsec := uint64(cfg.Runtime / time.Microsecond)
	warmupUsec := uint64(cfg.WarmupTime / time.Microsecond)
	intervalUsec := uint64(cfg.IntervalTime / time.Microsecond)
	zeroUsec := uint64(cfg.ZeroTime / time.Microsecond)

	var lastLoopCount uint64
	warmupDone := false
	done := false

	for !done {
		now := clock.NowUsec()
		runtimeDelta, _ := clock.DeltaUsec(start, now)

		if runtimeUsec != 0 && runtimeDelta >= runtimeUsec {
			done = true
		}

		switch {
		case !cfg.IsRPSMode() && !cfg.IsPipeMode() && runtimeDelta > warmupUsec && !warmupDone && warmupUsec != 0:
			warmupDone = true
			obslog.Get().Info().Msg("warmup done, zeroing stats")
			zeroTime = now
			resetWorkerStats(workers)
			rpsStats.Clear()
		case !cfg.IsPipeMode():
			deltaRps, _ := clock.DeltaUsec(lastRpsCalc, now)
			loopCount := sumLoopCount(workers)
			var rps float64
			if deltaRps > 0 {
				rps = float64(loopCount-lastLoopCount) * usecPerSec / float64(deltaRps)
			}
			lastLoopCount = loopCount
			lastRpsCalc = now

			if !cfg.IsAutoscaling() || autoscaler.TargetHit() {
				rpsStats.Record(uint64(rps))
			}

			deltaCalc, _ := clock.DeltaUsec(lastCalc, now)
			if deltaCalc >= intervalUsec {
				lastCalc = now
				wakeup, request := combineWakeupRequest(workers)
				runtimeSecs := float64(runtimeDelta) / usecPerSec
				reportWakeup(os.Stderr, wakeup, runtimeSecs, false)
				reportRequest(os.Stderr, request, runtimeSecs)
				reportRPS(os.Stderr, rpsStats, runtimeSecs)
			}
		}

		if zeroUsec != 0 {
			zeroDelta, _ := clock.DeltaUsec(zeroTime, now)
			if zeroDelta > zeroUsec {
				zeroTime = now
				resetWorkerStats(workers)
				rpsStats.Clear()
			}
		}

		if cfg.IsAutoscaling() {
			if err := autoscaler.Tick(cfg, rpsStats); err != nil {
				obslog.Get().Error().Err(err).Msg("autoscaler tick failed")
				os.Exit(1)
			}
		}

		if !done {
			time.Sleep(time.Second)
		}
	}

	stopping.Store(true)
}

func sumLoopCount(workers []*WorkerState) uint64 {
	var total uint64
	for _, w := range workers {
		total += w.loopCount.Load()
	}
	return total
}

func sumRuntime(workers []*WorkerState) uint64 {
	var total uint64
	for _, w := range workers {
		total += w.runtimeUsec.Load()
	}
	return total
}

func combineWakeupRequest(workers []*WorkerState) (wakeup, request *histogram.Histogram) {
	wakeup, request = histogram.New(), histogram.New()
	for _, w := range workers {
		wakeup.Combine(w.wakeupHist)
		request.Combine(w.requestHist)
	}
	return wakeup, request
}

func resetWorkerStats(workers []*WorkerState) {
	for _, w := range workers {
		w.wakeupHist.Clear()
		w.requestHist.Clear()
	}
}
