package bench

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/cpulock"
)

func TestWakeAllPostsPushedWorkers(t *testing.T) {
	cfg := testConfig(t, nil)
	w1 := newWorkerState(cfg, cpulock.New(1), 4)
	w2 := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w1, w2})

	w1.gate.Arm()
	w2.gate.Arm()
	mt.intake.Push(w1)
	mt.intake.Push(w2)

	wakeAll(mt, false)

	require.True(t, w1.gate.Wait(0))
	require.True(t, w2.gate.Wait(0))
	require.NotZero(t, w1.wakeTimeAt.Load())
	require.NotZero(t, w2.wakeTimeAt.Load())
}

func TestWakeAllPipeModeTouchesPipePage(t *testing.T) {
	cfg := testConfig(t, func(p *config.Params) { p.PipeBytes = 64 })
	w := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w})

	w.gate.Arm()
	mt.intake.Push(w)

	wakeAll(mt, true)

	for _, b := range w.pipePage {
		require.Equal(t, byte(1), b)
	}
}

// TestWorkerAndMessageThreadTerminateAfterStoppingKick drives a real
// RunWorker/RunMessageThread rendezvous (push, wake, process, push again)
// and only then raises stopping, mirroring Engine.Run's shutdown sequence:
// stopping is set, then every MessageThread's gate is posted once before
// joining. Without that post-stopping kick, a MessageThread parked in
// mt.gate.Wait(0) never re-checks stopping (RunWorker already checked
// stopping and stopped pushing one cycle earlier), so this test also
// verifies the orchestrator-level fix.
func TestWorkerAndMessageThreadTerminateAfterStoppingKick(t *testing.T) {
	cfg := testConfig(t, nil)
	w := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w})

	var stopping atomic.Bool

	workerDone := make(chan struct{})
	mtDone := make(chan struct{})
	go func() {
		RunWorker(&stopping, w, mt)
		close(workerDone)
	}()
	go func() {
		RunMessageThread(&stopping, mt, false)
		close(mtDone)
	}()

	// Wait for at least two full rendezvous cycles so we know the
	// MessageThread has actually parked in Wait() at least once, not just
	// exited on its very first drain.
	deadline := time.Now().Add(2 * time.Second)
	for w.loopCount.Load() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("worker never completed two rendezvous cycles")
		}
		time.Sleep(time.Millisecond)
	}

	stopping.Store(true)
	mt.gate.Post()

	for _, done := range []chan struct{}{workerDone, mtDone} {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker/message-thread did not terminate after stopping + gate kick")
		}
	}
}

func TestRunMessageThreadExitsOnStopping(t *testing.T) {
	cfg := testConfig(t, nil)
	w := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w})

	var stopping atomic.Bool
	stopping.Store(true)

	done := make(chan struct{})
	go func() {
		RunMessageThread(&stopping, mt, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunMessageThread did not exit once stopping was already set")
	}
}
