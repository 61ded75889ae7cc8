// Package hoststat reads host-wide CPU statistics for the Autoscaler
// (spec.md §4.9), which needs a busy-fraction delta between two samples.
//
// Grounded on ja7ad-consumption's pkg/system/proc.ReadSystemCPU: both active
// and total are jiffy counters that only make sense as deltas between
// samples, parsed from /proc/stat's aggregate "cpu" line. No third-party
// dependency is used here, matching the teacher's own choice.
package hoststat

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
)

// ErrNoCPULine is returned when /proc/stat has no aggregate "cpu" line.
var ErrNoCPULine = errors.New("hoststat: no aggregate cpu line in /proc/stat")

// Sample is a point-in-time read of host CPU jiffies.
type Sample struct {
	Active uint64 // user+nice+system+irq+softirq+steal
	Total  uint64 // Active+idle+iowait
}

// Read parses /proc/stat's aggregate CPU line.
func Read() (Sample, error) {
	return ReadFile("/proc/stat")
}

// ReadFile parses the aggregate CPU line out of a /proc/stat-formatted
// file at path, split out from Read for testability.
func ReadFile(path string) (Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sample{}, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 || fields[0] != "cpu" {
			continue
		}
		if len(fields) < 9 {
			return Sample{}, ErrNoCPULine
		}
		vals := make([]uint64, 0, len(fields)-1)
		for _, s := range fields[1:] {
			v, _ := strconv.ParseUint(s, 10, 64)
			vals = append(vals, v)
		}
		active := vals[0] + vals[1] + vals[2] + vals[5] + vals[6] + vals[7]
		total := active + vals[3] + vals[4]
		return Sample{Active: active, Total: total}, nil
	}
	return Sample{}, ErrNoCPULine
}

// BusyPercent returns the busy fraction, as a percentage, between two
// samples taken in order (prev, cur). It is undefined (0, false) if no time
// actually elapsed between the samples (Δtotal == 0).
func BusyPercent(prev, cur Sample) (pct float64, ok bool) {
	dTotal := cur.Total - prev.Total
	if dTotal == 0 {
		return 0, false
	}
	dIdle := (cur.Total - cur.Active) - (prev.Total - prev.Active)
	return 100 * (1 - float64(dIdle)/float64(dTotal)), true
}
