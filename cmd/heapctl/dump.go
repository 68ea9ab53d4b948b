package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDumpCmd())
}

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump <segment>",
		Short: "Print the pool header and every block",
		Long: `The dump command prints the pool header followed by one line per block
in address order, with free-list links for free blocks.

Example:
  heapctl dump cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd.Context(), args)
		},
	}
	return cmd
}

func runDump(ctx context.Context, args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()
	return s.read(ctx, func() error { return s.p.Dump(os.Stdout) })
}
