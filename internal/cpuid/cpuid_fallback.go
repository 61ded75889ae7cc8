//go:build !linux

package cpuid

import "runtime"

// current approximates a per-CPU identity on platforms without a portable
// getcpu(2) syscall: it hashes the calling goroutine's ID (extracted the
// way the pack's race-detector extracts it as a diagnostic fallback, by
// parsing runtime.Stack's "goroutine N [...]" header) modulo NumCPU.
//
// This is strictly worse than real CPU affinity — a goroutine keeps the
// same apparent "CPU" across OS-thread migrations — but PerCpuLock's
// post-acquisition recheck (spec.md §4.4) still holds: it just verifies
// against this same approximation, so the serialization guarantee it
// provides degrades to "at most one CpuBurn per distinct goroutine-ID
// bucket" rather than per physical core.
func current() (int, error) {
	n := runtime.NumCPU()
	if n <= 0 {
		n = 1
	}
	return int(goroutineID() % int64(n)), nil
}

func goroutineID() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return parseGID(buf[:n])
}

// parseGID extracts the numeric goroutine ID from a "goroutine N [...]"
// stack trace header.
func parseGID(buf []byte) int64 {
	const prefix = "goroutine "
	if len(buf) < len(prefix) || string(buf[:len(prefix)]) != prefix {
		return 0
	}
	var gid int64
	for i := len(prefix); i < len(buf); i++ {
		c := buf[i]
		if c < '0' || c > '9' {
			break
		}
		gid = gid*10 + int64(c-'0')
	}
	return gid
}
