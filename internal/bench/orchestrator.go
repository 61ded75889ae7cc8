package bench

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/cpuburn"
	"github.com/yhtzd/schbench/internal/cpulock"
	"github.com/yhtzd/schbench/internal/histogram"
)

// Engine owns the whole thread tree: M MessageThreads (classic) or
// RpsInjectors (RPS), each owning W Workers, plus the shared per-CPU lock
// array and the Observer that drives the run (spec.md §4.11 Orchestrator).
//
// Unlike the source this engine is adapted from, which lays MessageThread
// and its workers out in one contiguous slab at stride W+1, Engine stores
// each MessageThread as a record owning its own worker slice — the
// "cleaner redesign" spec.md §9 calls out, with Worker→MessageThread
// resolved at spawn instead of by pointer arithmetic.
type Engine struct {
	cfg *config.Config

	workers        []*WorkerState
	messageThreads []*MessageThreadState // nil in RPS mode

	cpuLocks   *cpulock.Locks
	rpsStats   *histogram.Histogram
	autoscaler *Autoscaler

	stopping atomic.Bool
}

// NewEngine builds the thread-tree data structures (but does not start any
// goroutines) for cfg.
func NewEngine(cfg *config.Config) *Engine {
	cpuLocks := cpulock.New(runtime.NumCPU())
	matrixSize := cpuburn.MatrixSize(cfg.CacheFootprintKB)

	e := &Engine{
		cfg:      cfg,
		cpuLocks: cpuLocks,
		rpsStats: histogram.New(),
	}
	if cfg.IsAutoscaling() {
		e.autoscaler = NewAutoscaler()
	}

	if cfg.IsRPSMode() {
		e.workers = make([]*WorkerState, 0, cfg.MessageThreads*cfg.WorkerThreads)
		for i := 0; i < cfg.MessageThreads; i++ {
			for j := 0; j < cfg.WorkerThreads; j++ {
				e.workers = append(e.workers, newWorkerState(cfg, cpuLocks, matrixSize))
			}
		}
	} else {
		e.messageThreads = make([]*MessageThreadState, cfg.MessageThreads)
		for i := 0; i < cfg.MessageThreads; i++ {
			workers := make([]*WorkerState, cfg.WorkerThreads)
			for j := range workers {
				workers[j] = newWorkerState(cfg, cpuLocks, matrixSize)
			}
			e.messageThreads[i] = newMessageThreadState(workers)
			e.workers = append(e.workers, workers...)
		}
	}
	return e
}

// Run starts every goroutine, drives the Observer loop on the calling
// goroutine until it raises stopping, waits for every worker and
// message-thread/injector goroutine to exit, and returns the combined
// end-of-run statistics.
func (e *Engine) Run() Stats {
	var eg errgroup.Group

	if e.cfg.IsRPSMode() {
		perThread := e.cfg.WorkerThreads
		for i := 0; i < e.cfg.MessageThreads; i++ {
			threadWorkers := e.workers[i*perThread : (i+1)*perThread]

			eg.Go(func() error {
				RunRpsInjector(&e.stopping, e.cfg, threadWorkers)
				return nil
			})

			for _, w := range threadWorkers {
				w := w
				eg.Go(func() error {
					RunWorker(&e.stopping, w, nil)
					return nil
				})
			}
		}
	} else {
		for _, mt := range e.messageThreads {
			mt := mt
			eg.Go(func() error {
				RunMessageThread(&e.stopping, mt, e.cfg.IsPipeMode())
				return nil
			})

			for _, w := range mt.workers {
				w := w
				eg.Go(func() error {
					RunWorker(&e.stopping, w, mt)
					return nil
				})
			}
		}
	}

	RunObserver(e.cfg, &e.stopping, e.workers, e.rpsStats, e.autoscaler)

	// A MessageThread parked in mt.gate.Wait(0) only re-checks stopping once
	// something posts it, and the last worker to push before stopping was
	// set has already returned without pushing again (RunWorker checks
	// stopping before calling sendAndWait). Post every MessageThread's gate
	// here so each one wakes, re-checks stopping, and exits (mirrors the
	// original's main() posting message_threads_mem[index].futex at
	// shutdown).
	for _, mt := range e.messageThreads {
		mt.gate.Post()
	}

	_ = eg.Wait() // worker/message-thread/injector loops never return an error

	wakeup, request := combineWakeupRequest(e.workers)
	return Stats{
		Wakeup:      wakeup,
		Request:     request,
		RPS:         e.rpsStats,
		LoopCount:   sumLoopCount(e.workers),
		LoopRuntime: sumRuntime(e.workers),
	}
}

// Autoscaler exposes the engine's autoscaler (nil unless -A was set), for
// callers that need to print the final rate goal.
func (e *Engine) Autoscaler() *Autoscaler { return e.autoscaler }
