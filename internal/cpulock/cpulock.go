// Package cpulock implements PerCpuLock: an array of mutexes indexed by the
// calling goroutine's current CPU, used to serialize CpuBurn to at most one
// concurrent burn per physical CPU (spec.md §4.4).
package cpulock

import (
	"runtime"
	"sync"

	"github.com/yhtzd/schbench/internal/cpuid"
)

// Locks is the per-CPU mutex array, sized to n logical CPUs.
type Locks struct {
	mu []sync.Mutex
}

// New returns a Locks array sized to n (use runtime.NumCPU() for the real
// per-process count; see DESIGN.md for why NumCPU rather than GOMAXPROCS).
func New(n int) *Locks {
	if n <= 0 {
		n = 1
	}
	return &Locks{mu: make([]sync.Mutex, n)}
}

// Held represents an acquired per-CPU lock; call Unlock when done.
type Held struct {
	mu *sync.Mutex
}

// Unlock releases the held lock.
func (h Held) Unlock() { h.mu.Unlock() }

// LockCurrentCPU implements the acquisition protocol from spec.md §4.4:
//  1. query the current CPU,
//  2. spin-acquire that CPU's mutex (yielding between attempts),
//  3. re-query the CPU; if it changed, release and restart.
//
// The re-check is load-bearing: without it, a goroutine that migrates
// between steps 1 and 2 could hold the wrong CPU's lock, defeating the
// "one CpuBurn per CPU" guarantee the caller wants.
func (l *Locks) LockCurrentCPU() (Held, error) {
	for {
		c, err := cpuid.Current()
		if err != nil {
			return Held{}, err
		}
		idx := c % len(l.mu)
		mu := &l.mu[idx]

		for !mu.TryLock() {
			runtime.Gosched()
		}

		c2, err := cpuid.Current()
		if err != nil {
			mu.Unlock()
			return Held{}, err
		}
		if c2%len(l.mu) != idx {
			mu.Unlock()
			continue
		}
		return Held{mu: mu}, nil
	}
}
