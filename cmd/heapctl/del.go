package main

import (
	"context"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newDelCmd())
}

func newDelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "del <segment> <key>...",
		Aliases: []string{"delete", "rm"},
		Short:   "Remove keys",
		Long: `The del command removes one or more keys from the segment's catalog in a
single transaction. A missing key aborts the transaction.

Example:
  heapctl del cache user:42 user:43`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDel(cmd.Context(), args)
		},
	}
	return cmd
}

func runDel(ctx context.Context, args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	keys := args[1:]
	err = s.write(ctx, func() error {
		for _, k := range keys {
			if err := s.cat.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"segment": args[0], "deleted": keys})
	}
	printVerbose("Deleted %d key(s)\n", len(keys))
	return nil
}
