package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/relheap/heap/catalog"
	"github.com/joshuapare/relheap/heap/dirty"
	"github.com/joshuapare/relheap/heap/pool"
	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/heap/tx"
	"github.com/joshuapare/relheap/internal/logger"
)

var (
	createSize  string
	createForce bool
)

func init() {
	cmd := newCreateCmd()
	cmd.Flags().StringVar(&createSize, "size", "1MiB", "Segment size (e.g. 64KiB, 16MB)")
	cmd.Flags().BoolVar(&createForce, "force", false, "Reformat an existing heap, discarding its contents")
	rootCmd.AddCommand(cmd)
}

func newCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <segment>",
		Short: "Create a segment and format an empty heap in it",
		Long: `The create command creates a named shared-memory segment, formats a
pool in it and stores an empty catalog as the pool root. An existing
formatted segment is left alone unless --force is given.

Example:
  heapctl create cache --size 16MiB
  heapctl create cache --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(cmd.Context(), args)
		},
	}
	return cmd
}

func runCreate(ctx context.Context, args []string) error {
	name := args[0]
	size, err := humanize.ParseBytes(createSize)
	if err != nil {
		return fmt.Errorf("invalid --size: %w", err)
	}
	if floor := uint64(pool.RequiredSize(0, 0)); size < floor {
		return fmt.Errorf("--size %s is below the minimum heap size %s",
			humanize.IBytes(size), humanize.IBytes(floor))
	}

	seg, err := shm.Create(name, int(size))
	if err != nil {
		return err
	}
	defer seg.Close()

	if err := seg.Lock(ctx); err != nil {
		return fmt.Errorf("lock %s: %w", name, err)
	}
	unlocked := false
	defer func() {
		if !unlocked {
			_ = seg.Unlock()
		}
	}()

	if _, err := pool.Attach(seg.Bytes(), nil); !createForce {
		if err == nil {
			return fmt.Errorf("segment %s already holds a heap (use --force to reformat)", name)
		}
		if !errors.Is(err, pool.ErrBadMarker) {
			return fmt.Errorf("segment %s: %w (use --force to reformat)", name, err)
		}
	}

	dt := dirty.NewTracker(seg.Span())
	p, err := pool.Format(seg.Bytes(), &pool.Options{Tracker: dt, Logger: logger.L})
	if err != nil {
		return err
	}
	if _, err := catalog.Create(p, &catalog.Options{Tracker: dt, Logger: logger.L}); err != nil {
		return err
	}

	// The format ran under the lock already; the manager only sequences and
	// flushes, then releases it.
	tm := tx.NewManager(p, nil, dt, dirty.FlushAuto)
	if err := tm.Begin(ctx); err != nil {
		return err
	}
	if err := tm.Commit(ctx); err != nil {
		return err
	}
	unlocked = true
	if err := seg.Unlock(); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"segment":  name,
			"path":     shm.Path(name),
			"size":     p.TotalSize(),
			"capacity": p.TotalCapacity(),
		})
	}
	printInfo("Created %s (%s, capacity %s)\n", name,
		humanize.IBytes(uint64(p.TotalSize())), humanize.IBytes(uint64(p.TotalCapacity())))
	printVerbose("  path: %s\n", shm.Path(name))
	return nil
}
