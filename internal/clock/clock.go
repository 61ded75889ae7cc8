// Package clock provides the monotonic microsecond clock the rest of the
// engine times against, plus the "negative delta means 0" clamping rule
// from spec.md §4.6/§7 (ClockAnomaly is never fatal, just suppresses a
// sample).
package clock

import "time"

// clockBase anchors NowUsec: a reading is clockBase's Unix time plus the
// monotonic time elapsed since clockBase, so readings never go backwards.
var clockBase = time.Now()

// NowUsec returns a monotonic microsecond timestamp. It is not wall-clock
// time and only meaningful relative to another NowUsec call.
func NowUsec() uint64 {
	return uint64(clockBase.UnixMicro() + time.Since(clockBase).Microseconds())
}

// DeltaUsec returns now-start in microseconds, clamped to 0 if negative
// (spec.md: "negative deltas are treated as zero (no sample recorded)").
// The caller is expected to skip recording when ok is false.
func DeltaUsec(start, now uint64) (delta uint64, ok bool) {
	if now < start {
		return 0, false
	}
	return now - start, true
}
