package main

import (
	"github.com/spf13/cobra"

	"github.com/joshuapare/relheap/heap/shm"
)

func init() {
	rootCmd.AddCommand(newUnlinkCmd())
}

func newUnlinkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "unlink <segment>",
		Short: "Remove a segment and its lock",
		Long: `The unlink command removes the segment and its semaphore. Processes
that still map the segment keep their view of it.

Example:
  heapctl unlink cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := shm.Unlink(args[0]); err != nil {
				return err
			}
			printVerbose("Removed %s\n", args[0])
			return nil
		},
	}
	return cmd
}
