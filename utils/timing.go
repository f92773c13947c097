package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
var Verbose = true

// Output is the writer where timing statistics are printed.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for the phases of a training run.
type TimingStats struct {
	TotalTime        time.Duration
	DataLoadingTime  time.Duration
	ForwardPassTime  time.Duration
	BackwardPassTime time.Duration
	UpdateTime       time.Duration
}

// PrintTimingStats prints timing statistics for a run of the given number of
// optimizer steps. Respects the Verbose flag.
func PrintTimingStats(stats *TimingStats, steps int) {
	if !Verbose || steps == 0 {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total training time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Steps completed: %d\n", steps)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data loading: %v (%.1f%%)\n", stats.DataLoadingTime, pct(stats.DataLoadingTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Forward pass: %v (%.1f%%)\n", stats.ForwardPassTime, pct(stats.ForwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Backward pass: %v (%.1f%%)\n", stats.BackwardPassTime, pct(stats.BackwardPassTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Weight updates: %v (%.1f%%)\n", stats.UpdateTime, pct(stats.UpdateTime, stats.TotalTime))
	fmt.Fprintf(Output, "  Average forward pass time: %v\n", stats.ForwardPassTime/time.Duration(steps))
	fmt.Fprintf(Output, "  Average backward pass time: %v\n", stats.BackwardPassTime/time.Duration(steps))
}

func pct(part, total time.Duration) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
