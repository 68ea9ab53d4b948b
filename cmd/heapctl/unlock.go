package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/relheap/heap/shm"
)

var unlockForce bool

func init() {
	cmd := newUnlockCmd()
	cmd.Flags().BoolVar(&unlockForce, "force", false, "Release the lock whatever its state")
	rootCmd.AddCommand(cmd)
}

func newUnlockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlock <segment>",
		Short: "Release a segment lock left by a dead process",
		Long: `The unlock command releases the segment lock. Without --force it fails
when the lock is not held.

Example:
  heapctl unlock cache --force`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUnlock(args)
		},
	}
	return cmd
}

func runUnlock(args []string) error {
	seg, err := shm.Open(args[0])
	if err != nil {
		return err
	}
	defer seg.Close()

	wasLocked := seg.Locked()
	if unlockForce {
		err = seg.ForceUnlock()
	} else {
		err = seg.Unlock()
	}
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"segment": args[0], "was_locked": wasLocked})
	}
	printVerbose("Unlocked %s\n", args[0])
	return nil
}
