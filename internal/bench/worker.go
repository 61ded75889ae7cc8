package bench

import (
	"os"
	"sync/atomic"
	"time"

	"github.com/yhtzd/schbench/internal/clock"
	"github.com/yhtzd/schbench/internal/obslog"
)

// networkSleep is the simulated network round-trip a non-pipe, non-
// calibrating request sleeps for before running CpuBurn (spec.md §4.6).
const networkSleep = 100 * time.Microsecond

// RunWorker is a single worker's loop, run until stopping is observed at
// the top of an iteration (spec.md §4.6). mt is nil in RPS mode, where
// requests arrive via w.requests instead of a MessageThread rendezvous.
func RunWorker(stopping *atomic.Bool, w *WorkerState, mt *MessageThreadState) {
	start := clock.NowUsec()
	for {
		if stopping.Load() {
			return
		}

		req := w.sendAndWait(stopping, mt)
		if w.cfg.IsRPSMode() && req == nil {
			continue
		}

		cur := req
		for {
			w.processRequest(cur, start)
			if cur == nil {
				break
			}
			if cur = w.requests.Next(cur); cur == nil {
				break
			}
		}
	}
}

// sendAndWait implements spec.md §4.6 step 1: arm the gate, either hand
// ourselves to the MessageThread (classic) or self-drain our own request
// list (RPS), wait if nothing was already pending, then record wakeup
// latency. It returns the drained request chain head in RPS mode, or nil
// in classic mode.
func (w *WorkerState) sendAndWait(stopping *atomic.Bool, mt *MessageThreadState) *Request {
	if w.cfg.IsPipeMode() {
		fillPipePage(w.pipePage, 2)
	}

	w.gate.Arm()
	w.wakeTimeAt.Store(clock.NowUsec())

	if w.cfg.IsRPSMode() {
		w.pending.Store(0)
		if req := w.requests.Drain(); req != nil {
			// Requests are reversed on drain so workers process them in
			// injection order (spec.md §4.3).
			req = w.requests.Reverse(req)
			w.gate.Cancel()
			w.recordWakeupLatency()
			return req
		}
	} else {
		mt.intake.Push(w)
		mt.gate.Post()
	}

	if !stopping.Load() {
		w.gate.Wait(0)
	}

	w.recordWakeupLatency()
	return nil
}

func (w *WorkerState) recordWakeupLatency() {
	now := clock.NowUsec()
	if d, ok := clock.DeltaUsec(w.wakeTimeAt.Load(), now); ok {
		w.wakeupHist.Record(d)
	}
}

// processRequest implements spec.md §4.6 step 2 for a single request token
// (req is nil in classic mode, where one pass stands in for "the request").
func (w *WorkerState) processRequest(req *Request, epochStart uint64) {
	var workStart uint64
	switch {
	case w.cfg.IsPipeMode():
		workStart = clock.NowUsec()
	case w.cfg.CalibrateOnly:
		// Calibration excludes the simulated network sleep from the
		// measured interval: sleep first, then timestamp.
		time.Sleep(networkSleep)
		workStart = clock.NowUsec()
		w.doWork()
	default:
		workStart = clock.NowUsec()
		time.Sleep(networkSleep)
		w.doWork()
	}

	now := clock.NowUsec()
	if d, ok := clock.DeltaUsec(workStart, now); ok {
		w.requestHist.Record(d)
	}
	w.loopCount.Add(1)
	if d, ok := clock.DeltaUsec(epochStart, now); ok {
		w.runtimeUsec.Store(d)
	}
}

// doWork runs the CpuBurn kernel, serialized by the per-CPU lock unless
// locking is skipped (spec.md §4.4/§4.5). A failed per-CPU query is logged
// and exits the process with status 1.
func (w *WorkerState) doWork() {
	if w.cfg.SkipLocking {
		w.matrices.Burn(w.cfg.Operations)
		return
	}
	held, err := w.cpul.LockCurrentCPU()
	if err != nil {
		obslog.Get().Error().Err(err).Msg("per-cpu lock acquisition failed")
		os.Exit(1)
	}
	defer held.Unlock()
	w.matrices.Burn(w.cfg.Operations)
}

func fillPipePage(buf []byte, b byte) {
	for i := range buf {
		buf[i] = b
	}
}
