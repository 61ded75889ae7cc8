// Package bench implements the dispatch and measurement engine: the
// message-thread/worker-thread rendezvous, the two request-pacing modes, and
// the observer/orchestrator loops that drive them (spec.md §2/§4).
package bench

import (
	"sync/atomic"

	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/cpuburn"
	"github.com/yhtzd/schbench/internal/cpulock"
	"github.com/yhtzd/schbench/internal/gate"
	"github.com/yhtzd/schbench/internal/histogram"
	"github.com/yhtzd/schbench/internal/intake"
)

// pendingBackpressureLimit is the "pending > 8" cap from spec.md §4.8: once
// a worker has more than this many un-drained requests outstanding, the
// RpsInjector skips further injection to it rather than queueing unboundedly.
const pendingBackpressureLimit = 8

// rpsBatchSize is the injection batch size the RpsInjector paces sleeps by
// (spec.md §4.8).
const rpsBatchSize = 8

// Request is a single injected work token: a timestamp threaded onto a
// worker's intake list by Push/Drain/Reverse. Created by RpsInjector in RPS
// mode, consumed (and discarded) by the owning Worker; never shared.
type Request struct {
	StartUsec uint64
	link      intake.Node[Request]
}

func requestNode(r *Request) *intake.Node[Request] { return &r.link }

// WorkerState is everything one worker goroutine owns: its rendezvous gate,
// its two latency histograms, its CpuBurn matrices and pipe scratch buffer,
// and (in RPS mode) its own request intake list (spec.md §3 "WorkerState").
type WorkerState struct {
	gate *gate.Gate

	wakeupHist  *histogram.Histogram
	requestHist *histogram.Histogram

	loopCount   atomic.Uint64
	runtimeUsec atomic.Uint64
	pending     atomic.Int32

	// wakeTimeAt is set to a placeholder by the worker itself just before
	// parking, then overwritten with the authoritative post instant by
	// whichever of MessageThread/RpsInjector wakes it (spec.md §4.6/§4.7).
	wakeTimeAt atomic.Uint64

	pipePage []byte
	matrices *cpuburn.Buffer

	requests *intake.List[Request]

	// link is this worker's node in its MessageThread's worker intake list
	// (classic mode only).
	link intake.Node[WorkerState]

	cfg  *config.Config
	cpul *cpulock.Locks
}

func workerNode(w *WorkerState) *intake.Node[WorkerState] { return &w.link }

func newWorkerState(cfg *config.Config, cpul *cpulock.Locks, matrixSize int) *WorkerState {
	w := &WorkerState{
		gate:        gate.New(),
		wakeupHist:  histogram.New(),
		requestHist: histogram.New(),
		matrices:    cpuburn.NewBuffer(matrixSize),
		requests:    intake.New(requestNode),
		cfg:         cfg,
		cpul:        cpul,
	}
	if cfg.IsPipeMode() {
		w.pipePage = make([]byte, cfg.PipeBytes)
	}
	return w
}

// MessageThreadState owns a rendezvous gate and, in classic mode, the
// worker intake list its workers push themselves onto (spec.md §3
// "MessageThreadState").
type MessageThreadState struct {
	gate    *gate.Gate
	intake  *intake.List[WorkerState]
	workers []*WorkerState

	loopCount   atomic.Uint64
	runtimeUsec atomic.Uint64
}

func newMessageThreadState(workers []*WorkerState) *MessageThreadState {
	return &MessageThreadState{
		gate:    gate.New(),
		intake:  intake.New(workerNode),
		workers: workers,
	}
}
