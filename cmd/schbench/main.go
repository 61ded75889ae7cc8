// Command schbench runs the scheduler latency/throughput benchmark: it
// synthesizes a workload shaped so that the dominant cost is the OS
// scheduler's wake-up path and short CPU-bound bursts, and reports wakeup
// and request latency distributions plus achieved throughput.
package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/yhtzd/schbench/internal/bench"
	"github.com/yhtzd/schbench/internal/config"
	"github.com/yhtzd/schbench/internal/obslog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var p config.Params
	var verbose bool

	cmd := &cobra.Command{
		Use:           "schbench",
		Short:         "scheduler latency and throughput benchmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args: func(cmd *cobra.Command, extra []string) error {
			if len(extra) > 0 {
				return fmt.Errorf("Error Extra arguments")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			obslog.Default(level)

			p.NumCPU = runtime.NumCPU()
			cfg, err := config.New(p)
			if err != nil {
				return err
			}
			// The global -R target is divided by message-threads once at
			// startup; each RpsInjector and the Autoscaler share this one
			// per-message-thread copy from then on (spec.md §4.8/§9).
			if cfg.MessageThreads > 0 {
				cfg.SetRequestsPerSec(cfg.RequestsPerSec() / int64(cfg.MessageThreads))
			}

			engine := bench.NewEngine(cfg)
			stats := engine.Run()
			bench.ReportFinal(os.Stderr, cfg, stats, cfg.Runtime.Seconds())
			return nil
		},
	}
	cmd.SetArgs(args)

	flags := cmd.Flags()
	flags.IntVarP(&p.MessageThreads, "message-threads", "m", 1, "number of message threads")
	flags.IntVarP(&p.WorkerThreads, "threads", "t", 0, "worker threads per message thread (default: ceil(numCPU/M))")
	flags.IntVarP(&p.RuntimeSecs, "runtime", "r", 30, "runtime in seconds")
	flags.IntVarP(&p.WarmupSecs, "warmuptime", "w", 0, "warmup time in seconds")
	flags.IntVarP(&p.IntervalSecs, "intervaltime", "i", 10, "interval report cadence in seconds")
	flags.IntVarP(&p.ZeroSecs, "zerotime", "z", 0, "periodic stat reset cadence in seconds (0 = never)")
	flags.Uint64VarP(&p.CacheFootprintKB, "cache_footprint", "F", 256, "cache footprint in KB")
	flags.IntVarP(&p.Operations, "operations", "n", 5, "matrix multiplies per request")
	flags.Int64VarP(&p.RequestsPerSec, "rps", "R", 0, "target requests per second (0 = classic mode)")
	flags.Float64VarP(&p.AutoRPS, "auto-rps", "A", 0, "autoscale rps toward this target host busy percent")
	flags.Uint64VarP(&p.PipeBytes, "pipe", "p", 0, "pipe mode transfer size in bytes (capped at 1MiB)")
	flags.BoolVarP(&p.CalibrateOnly, "calibrate", "C", false, "calibration mode: no locking, pre-sleep excluded from timing")
	flags.BoolVarP(&p.SkipLocking, "no-locking", "L", false, "skip per-CPU locking")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	// --help exits 1 per the CLI contract (spec.md §6), unlike cobra's
	// default exit-0 help behavior.
	if cmd.Flags().Changed("help") {
		return 1
	}
	return 0
}

