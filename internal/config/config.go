// Package config holds the single immutable configuration handle described
// in spec.md §3 ("Global mutable config... capture the config tuple in an
// immutable handle shared by reference; mutate requests_per_sec through an
// atomic field on that handle" — spec.md §9 design notes).
package config

import (
	"fmt"
	"sync/atomic"
	"time"
)

const (
	// maxPipeBytes caps -p/--pipe at 1 MiB per spec.md §3.
	maxPipeBytes = 1 << 20
)

// Config is built once at startup by New and then shared by pointer
// across every goroutine the Orchestrator spawns. Every field is read-only
// after construction except RequestsPerSec, which cmd/schbench sets once at
// startup and the Autoscaler then mutates, through atomic operations; every
// RpsInjector reads it the same way.
type Config struct {
	MessageThreads int // -m
	WorkerThreads  int // -t

	Runtime      time.Duration // -r
	WarmupTime   time.Duration // -w
	IntervalTime time.Duration // -i
	ZeroTime     time.Duration // -z (0 = never)

	CacheFootprintKB uint64 // -F
	Operations       int    // -n

	AutoRPS       float64 // -A, percent; 0 = disabled
	PipeBytes     uint64  // -p, 0 = disabled
	CalibrateOnly bool    // -C
	SkipLocking   bool    // -L

	// requestsPerSec is the *per message-thread* target rate (the raw -R
	// value divided by MessageThreads once at startup by cmd/schbench).
	// After that division, only the Autoscaler mutates it.
	requestsPerSec atomic.Int64
}

// Params are the raw, validated CLI inputs New builds a Config from. They
// mirror spec.md §6's CLI surface one flag at a time.
type Params struct {
	MessageThreads   int
	WorkerThreads    int // 0 means "use the default: ceil(numCPU/M)"
	RuntimeSecs      int
	WarmupSecs       int
	IntervalSecs     int
	ZeroSecs         int
	CacheFootprintKB uint64
	Operations       int
	RequestsPerSec   int64
	AutoRPS          float64
	PipeBytes        uint64
	CalibrateOnly    bool
	SkipLocking      bool
	NumCPU           int // injected for testability; callers pass runtime.NumCPU()
}

// New validates p and derives a Config, applying every default and forced
// override from spec.md §3/§6:
//   - WorkerThreads defaults to ceil(NumCPU/MessageThreads).
//   - WarmupTime is forced to 0 when Runtime<30s, pipe mode, or autoscaling.
//   - AutoRPS>0 with RequestsPerSec==0 seeds RequestsPerSec to 10.
//   - PipeBytes is capped at 1 MiB.
func New(p Params) (*Config, error) {
	if p.MessageThreads <= 0 {
		return nil, fmt.Errorf("config: message-threads must be > 0, got %d", p.MessageThreads)
	}
	if p.Operations <= 0 {
		return nil, fmt.Errorf("config: operations must be > 0, got %d", p.Operations)
	}
	if p.CacheFootprintKB == 0 {
		return nil, fmt.Errorf("config: cache_footprint must be > 0")
	}
	if p.RuntimeSecs <= 0 {
		return nil, fmt.Errorf("config: runtime must be > 0, got %d", p.RuntimeSecs)
	}

	workers := p.WorkerThreads
	if workers <= 0 {
		numCPU := p.NumCPU
		if numCPU <= 0 {
			numCPU = 1
		}
		workers = (numCPU + p.MessageThreads - 1) / p.MessageThreads
		if workers <= 0 {
			workers = 1
		}
	}

	pipeBytes := p.PipeBytes
	if pipeBytes > maxPipeBytes {
		pipeBytes = maxPipeBytes
	}

	rps := p.RequestsPerSec
	autoscaling := p.AutoRPS > 0
	if autoscaling && rps == 0 {
		rps = 10
	}

	warmup := time.Duration(p.WarmupSecs) * time.Second
	if p.RuntimeSecs < 30 || pipeBytes > 0 || autoscaling {
		warmup = 0
	}

	c := &Config{
		MessageThreads:   p.MessageThreads,
		WorkerThreads:    workers,
		Runtime:          time.Duration(p.RuntimeSecs) * time.Second,
		WarmupTime:       warmup,
		IntervalTime:     time.Duration(p.IntervalSecs) * time.Second,
		ZeroTime:         time.Duration(p.ZeroSecs) * time.Second,
		CacheFootprintKB: p.CacheFootprintKB,
		Operations:       p.Operations,
		AutoRPS:          p.AutoRPS,
		PipeBytes:        pipeBytes,
		CalibrateOnly:    p.CalibrateOnly,
		SkipLocking:      p.SkipLocking || p.CalibrateOnly,
	}
	c.requestsPerSec.Store(rps)
	return c, nil
}

// RequestsPerSec returns the current per-message-thread target rate.
func (c *Config) RequestsPerSec() int64 { return c.requestsPerSec.Load() }

// SetRequestsPerSec atomically installs a new per-message-thread target
// rate; cmd/schbench calls this once at startup, and the Autoscaler on each
// adjustment.
func (c *Config) SetRequestsPerSec(v int64) { c.requestsPerSec.Store(v) }

// IsRPSMode reports whether requests are injected at a fixed rate rather
// than driven by worker completion (spec.md: "RequestsPerSec (R): enables
// RPS mode when >0").
func (c *Config) IsRPSMode() bool { return c.requestsPerSec.Load() > 0 }

// IsPipeMode reports whether CpuBurn is replaced by a scratch-page touch.
func (c *Config) IsPipeMode() bool { return c.PipeBytes > 0 }

// IsAutoscaling reports whether the Autoscaler is active.
func (c *Config) IsAutoscaling() bool { return c.AutoRPS > 0 }
