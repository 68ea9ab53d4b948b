package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newEvictCmd())
}

func newEvictCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evict <segment> <n>",
		Short: "Remove the n oldest entries",
		Long: `The evict command removes entries from the front of the insertion
order, oldest first.

Example:
  heapctl evict cache 100`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvict(cmd.Context(), args)
		},
	}
	return cmd
}

func runEvict(ctx context.Context, args []string) error {
	n, err := strconv.Atoi(args[1])
	if err != nil || n < 0 {
		return fmt.Errorf("invalid count %q", args[1])
	}
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	var removed int
	if err := s.write(ctx, func() error {
		removed, err = s.cat.Evict(n)
		return err
	}); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"segment": args[0], "evicted": removed})
	}
	printInfo("Evicted %d entries\n", removed)
	return nil
}
