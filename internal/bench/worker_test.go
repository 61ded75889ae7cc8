package bench

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yhtzd/schbench/internal/clock"
	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/cpulock"
)

func testConfig(t *testing.T, mutate func(*config.Params)) *config.Config {
	t.Helper()
	p := config.Params{
		MessageThreads:   1,
		WorkerThreads:    1,
		RuntimeSecs:      30,
		Operations:       1,
		CacheFootprintKB: 16,
		SkipLocking:      true,
		NumCPU:           4,
	}
	if mutate != nil {
		mutate(&p)
	}
	cfg, err := config.New(p)
	require.NoError(t, err)
	return cfg
}

func TestProcessRequestRecordsLatency(t *testing.T) {
	cfg := testConfig(t, nil)
	w := newWorkerState(cfg, cpulock.New(1), 4)

	start := clock.NowUsec()
	w.processRequest(nil, start)

	require.EqualValues(t, 1, w.requestHist.NrSamples())
	require.EqualValues(t, 1, w.loopCount.Load())
}

func TestProcessRequestCalibrateSleepsBeforeTimestamp(t *testing.T) {
	cfg := testConfig(t, func(p *config.Params) { p.CalibrateOnly = true })
	w := newWorkerState(cfg, cpulock.New(1), 4)

	start := clock.NowUsec()
	w.processRequest(nil, start)

	// calibration excludes the ~100us network sleep from the measured
	// interval, so the recorded request latency should be tiny.
	require.EqualValues(t, 1, w.requestHist.NrSamples())
	require.Less(t, w.requestHist.Max(), uint64(50_000))
}

func TestSendAndWaitRPSSelfDrainReturnsImmediately(t *testing.T) {
	cfg := testConfig(t, func(p *config.Params) { p.RequestsPerSec = 10 })
	w := newWorkerState(cfg, cpulock.New(1), 4)
	w.requests.Push(&Request{StartUsec: clock.NowUsec()})

	var stopping atomic.Bool
	done := make(chan *Request, 1)
	go func() { done <- w.sendAndWait(&stopping, nil) }()

	select {
	case req := <-done:
		require.NotNil(t, req)
	case <-time.After(time.Second):
		t.Fatal("sendAndWait blocked despite a self-drained request")
	}
	require.EqualValues(t, 1, w.wakeupHist.NrSamples())
}

func TestSendAndWaitClassicPushesSelfAndWaits(t *testing.T) {
	cfg := testConfig(t, nil)
	w := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w})

	var stopping atomic.Bool
	done := make(chan *Request, 1)
	go func() { done <- w.sendAndWait(&stopping, mt) }()

	// Repeatedly drain-and-wake the way RunMessageThread would, until the
	// worker has had a chance to push itself and gets woken.
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		wakeAll(mt, false)
		select {
		case req := <-done:
			require.Nil(t, req)
			require.EqualValues(t, 1, w.wakeupHist.NrSamples())
			return
		case <-time.After(5 * time.Millisecond):
		}
	}
	t.Fatal("sendAndWait never woke after repeated wakeAll")
}

func TestSendAndWaitStoppingSkipsWait(t *testing.T) {
	cfg := testConfig(t, nil)
	w := newWorkerState(cfg, cpulock.New(1), 4)
	mt := newMessageThreadState([]*WorkerState{w})

	var stopping atomic.Bool
	stopping.Store(true)

	done := make(chan *Request, 1)
	go func() { done <- w.sendAndWait(&stopping, mt) }()

	select {
	case req := <-done:
		require.Nil(t, req)
	case <-time.After(time.Second):
		t.Fatal("sendAndWait should not block once stopping is observed")
	}
}
