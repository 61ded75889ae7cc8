package bench

import (
	"fmt"
	"io"

	"github.com/yhtzd/schbench/internal/bytesize"
	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/histogram"
)

// percentilesForLat/ForRps are the fixed percentile sets spec.md §6 prints
// for latency and throughput histograms, respectively.
var (
	percentilesForLat    = []float64{50, 90, 99, 99.9}
	percentilesForLatP20 = []float64{20, 50, 90, 99, 99.9}
	percentilesForRps    = []float64{20, 50, 90}
)

const (
	starLat = 99.0
	starRps = 50.0
)

// reportLatencies prints h's percentile breakdown in the fixed format
// spec.md §6 specifies, skipping entirely if h has no samples.
func reportLatencies(w io.Writer, h *histogram.Histogram, label, units string, runtimeSecs float64, percentiles []float64, star float64) {
	n := h.NrSamples()
	if n == 0 {
		return
	}
	values, counts := h.Percentiles(percentiles)
	fmt.Fprintf(w, "%s percentiles (%s) runtime %.0f (s) (%d total samples)\n", label, units, runtimeSecs, n)
	for i, p := range percentiles {
		marker := "  "
		if p == star {
			marker = "* "
		}
		fmt.Fprintf(w, "\t%s%2.1fth: %-10d (%d samples)\n", marker, p, values[i], counts[i])
	}
	fmt.Fprintf(w, "\t  min=%d, max=%d\n", h.Min(), h.Max())
}

// reportWakeup/reportRequest/reportRPS are thin label/units wrappers around
// reportLatencies for the three histograms the engine tracks.
func reportWakeup(w io.Writer, h *histogram.Histogram, runtimeSecs float64, includeP20 bool) {
	plist := percentilesForLat
	if includeP20 {
		plist = percentilesForLatP20
	}
	reportLatencies(w, h, "Wakeup Latencies", "usec", runtimeSecs, plist, starLat)
}

func reportRequest(w io.Writer, h *histogram.Histogram, runtimeSecs float64) {
	reportLatencies(w, h, "Request Latencies", "usec", runtimeSecs, percentilesForLat, starLat)
}

func reportRPS(w io.Writer, h *histogram.Histogram, runtimeSecs float64) {
	reportLatencies(w, h, "RPS", "requests", runtimeSecs, percentilesForRps, starRps)
}

// reportPipeTransfer prints the pipe-mode end-of-run throughput line
// (spec.md §6): ops/sec and a pretty-printed bytes/sec figure.
func reportPipeTransfer(w io.Writer, opsPerSec float64, pipeBytes uint64) {
	bytesPerSec := bytesize.Bytes(opsPerSec * float64(pipeBytes))
	fmt.Fprintf(w, "avg worker transfer: %.2f ops/sec %s/s\n", opsPerSec, bytesPerSec)
}

// reportAverageRPS prints the plain (non-autoscaling) end-of-run line.
func reportAverageRPS(w io.Writer, rps float64) {
	fmt.Fprintf(w, "average rps: %.2f\n", rps)
}

// reportFinalRPSGoal prints the autoscaling end-of-run line.
func reportFinalRPSGoal(w io.Writer, r int64) {
	fmt.Fprintf(w, "final rps goal was %d\n", r)
}

// ReportFinal prints the end-of-run report for a completed Stats, following
// the branching spec.md §6 documents: pipe mode prints a transfer-rate
// line; otherwise, autoscaling prints the final rate goal and non-
// autoscaling prints the plain average rps.
func ReportFinal(w io.Writer, cfg *config.Config, stats Stats, runtimeSecs float64) {
	if cfg.IsPipeMode() {
		reportWakeup(w, stats.Wakeup, runtimeSecs, true)
		var opsPerSec float64
		if stats.LoopRuntime > 0 {
			opsPerSec = float64(stats.LoopCount) * usecPerSec / float64(stats.LoopRuntime)
		}
		reportPipeTransfer(w, opsPerSec, cfg.PipeBytes)
		return
	}

	reportWakeup(w, stats.Wakeup, runtimeSecs, false)
	reportRequest(w, stats.Request, runtimeSecs)
	reportRPS(w, stats.RPS, runtimeSecs)

	if cfg.IsAutoscaling() {
		reportFinalRPSGoal(w, cfg.RequestsPerSec())
		return
	}
	var rps float64
	if runtimeSecs > 0 {
		rps = float64(stats.LoopCount) / runtimeSecs
	}
	reportAverageRPS(w, rps)
}
