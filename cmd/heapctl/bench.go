package main

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/relheap/heap"
	"github.com/joshuapare/relheap/heap/pool"
)

var (
	benchCount   int
	benchMaxSize string
	benchSize    string
	benchSeed    uint64
)

func init() {
	cmd := newBenchCmd()
	cmd.Flags().IntVar(&benchCount, "count", 100000, "Number of allocate/free operations")
	cmd.Flags().StringVar(&benchMaxSize, "max-size", "1KiB", "Largest allocation")
	cmd.Flags().StringVar(&benchSize, "size", "16MiB", "Heap size")
	cmd.Flags().Uint64Var(&benchSeed, "seed", 1, "Random seed")
	rootCmd.AddCommand(cmd)
}

func newBenchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a random allocate/free workload on a private heap",
		Long: `The bench command formats a heap in anonymous memory and runs a random
mix of allocations, reallocations and frees against it, then reports
throughput and allocator counters.

Example:
  heapctl bench --count 1000000 --max-size 4KiB`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench()
		},
	}
	return cmd
}

// BenchResult is the bench command's report.
type BenchResult struct {
	Ops         int           `json:"ops"`
	Elapsed     time.Duration `json:"elapsed_ns"`
	OpsPerSec   float64       `json:"ops_per_sec"`
	NoSpace     int           `json:"no_space"`
	Live        int           `json:"live"`
	Used        int           `json:"used"`
	Utilization float64       `json:"utilization"`
	Stats       pool.Stats    `json:"stats"`
}

func runBench() error {
	size, err := humanize.ParseBytes(benchSize)
	if err != nil {
		return fmt.Errorf("invalid --size: %w", err)
	}
	maxSize, err := humanize.ParseBytes(benchMaxSize)
	if err != nil || maxSize == 0 {
		return fmt.Errorf("invalid --max-size %q", benchMaxSize)
	}

	span, err := heap.Anon(int(size))
	if err != nil {
		return err
	}
	defer span.Close()
	p, err := pool.Format(span.Bytes(), nil)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewPCG(benchSeed, benchSeed^0x9e3779b97f4a7c15))
	var live []pool.Ref
	res := BenchResult{Ops: benchCount}

	start := time.Now()
	for range benchCount {
		n := 1 + rng.IntN(int(maxSize))
		switch op := rng.IntN(10); {
		case op < 5 || len(live) == 0:
			ref, _, err := p.Alloc(n)
			if pool.IsNoSpace(err) {
				res.NoSpace++
				continue
			}
			if err != nil {
				return err
			}
			live = append(live, ref)
		case op < 7:
			i := rng.IntN(len(live))
			ref, _, err := p.Realloc(live[i], n)
			if pool.IsNoSpace(err) {
				res.NoSpace++
				continue
			}
			if err != nil {
				return err
			}
			live[i] = ref
		default:
			i := rng.IntN(len(live))
			if err := p.Free(live[i]); err != nil {
				return err
			}
			live[i] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}
	res.Elapsed = time.Since(start)

	if err := p.Check(); err != nil {
		return errors.Join(errors.New("heap inconsistent after bench"), err)
	}
	res.OpsPerSec = float64(res.Ops) / res.Elapsed.Seconds()
	res.Live = len(live)
	res.Used = p.Used()
	res.Utilization = p.Utilization()
	res.Stats = p.Stats()

	if jsonOut {
		return printJSON(res)
	}
	printInfo("\nBench (%s heap, allocations up to %s):\n",
		humanize.IBytes(size), humanize.IBytes(maxSize))
	printInfo("  Ops: %s in %s (%s ops/s)\n",
		humanize.Comma(int64(res.Ops)), res.Elapsed.Round(time.Millisecond),
		humanize.Commaf(float64(int64(res.OpsPerSec))))
	printInfo("  Out of space: %s\n", humanize.Comma(int64(res.NoSpace)))
	printInfo("  Live blocks: %s using %s (%.1f%%)\n",
		humanize.Comma(int64(res.Live)), humanize.IBytes(uint64(res.Used)), res.Utilization*100)
	printInfo("  Splits: %s  Merges: %s\n",
		humanize.Comma(int64(res.Stats.Splits)), humanize.Comma(int64(res.Stats.Merges)))
	return nil
}
