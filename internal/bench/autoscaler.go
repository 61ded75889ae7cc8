package bench

import (
	"math"
	"sync/atomic"

	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/histogram"
	"github.com/yhtzd/schbench/internal/hoststat"
)

// Autoscaler nudges cfg's requests-per-second target toward a host
// CPU-busy-fraction goal, once per Observer tick (spec.md §4.9).
type Autoscaler struct {
	read      func() (hoststat.Sample, error)
	prev      hoststat.Sample
	hasPrev   bool
	targetHit atomic.Bool
}

// NewAutoscaler returns an Autoscaler with no prior sample; its first Tick
// only snapshots and makes no adjustment.
func NewAutoscaler() *Autoscaler {
	return &Autoscaler{read: hoststat.Read}
}

// newAutoscalerWithReader is the test seam: it lets tests supply a fake
// host-stat reader instead of /proc/stat.
func newAutoscalerWithReader(read func() (hoststat.Sample, error)) *Autoscaler {
	return &Autoscaler{read: read}
}

// TargetHit reports whether the rate has ever settled close enough to the
// busy-percent goal. Once true, it stays true (spec.md: "one-shot flag").
func (a *Autoscaler) TargetHit() bool { return a.targetHit.Load() }

// Tick reads the current host CPU sample and adjusts cfg.RequestsPerSec
// toward cfg.AutoRPS percent busy, clearing rpsStats the moment the target
// is first hit so only steady-state samples are reported (spec.md §4.9).
func (a *Autoscaler) Tick(cfg *config.Config, rpsStats *histogram.Histogram) error {
	cur, err := a.read()
	if err != nil {
		return err
	}
	if !a.hasPrev {
		a.prev = cur
		a.hasPrev = true
		return nil
	}

	busy, ok := hoststat.BusyPercent(a.prev, cur)
	a.prev = cur
	if !ok {
		return nil
	}

	target := cfg.AutoRPS
	r := cfg.RequestsPerSec()
	var newR int64

	switch {
	case busy < target:
		delta := clampMax(target/busy, 3.0)
		switch {
		case delta < 1.2:
			delta = 1 + (delta-1)/8
			if delta < 1.05 {
				a.hitTarget(rpsStats)
			}
		case delta < 1.5:
			delta = 1 + (delta-1)/4
		}
		scaled := math.Ceil(float64(r) * delta)
		if scaled >= (1 << 31) {
			// Not enough worker threads to hit the target load; hold steady
			// rather than overflow (spec.md §7: autoscale overflow clamp).
			scaled = float64(r)
		}
		newR = int64(scaled)
	case busy > target:
		delta := clampMin(target/busy, 0.3)
		switch {
		case delta > 0.9:
			delta += (1 - delta) / 8
			if delta > 0.95 {
				a.hitTarget(rpsStats)
			}
		case delta > 0.8:
			delta += (1 - delta) / 4
		}
		scaled := math.Floor(float64(r) * delta)
		if scaled <= 0 {
			scaled = 0
		}
		newR = int64(scaled)
	default:
		newR = r
		a.hitTarget(rpsStats)
	}

	cfg.SetRequestsPerSec(newR)
	return nil
}

func (a *Autoscaler) hitTarget(rpsStats *histogram.Histogram) {
	if a.targetHit.CompareAndSwap(false, true) {
		rpsStats.Clear()
	}
}
