// Package cpuid answers "which CPU is the calling goroutine running on
// right now", the identity query PerCpuLock's acquisition protocol needs
// (spec.md §4.4). It has no perfectly portable answer in Go — there is no
// cross-platform getcpu(2) equivalent — so the real syscall is used on
// Linux (see cpuid_linux.go) and a goroutine-id-derived approximation is
// used elsewhere (see cpuid_fallback.go).
package cpuid

// Current returns the index of the logical CPU the calling goroutine is
// presently scheduled on: the kernel's CPU number on Linux, and a pseudo-CPU
// index in [0, runtime.NumCPU()) elsewhere. Because goroutines can be
// migrated between CPUs at any preemption point, the result is a single
// instant's snapshot, not a sticky affinity.
var Current func() (int, error) = current
