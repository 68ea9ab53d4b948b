package main

import (
	"context"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	lsFrom      string
	lsTo        string
	lsInsertion bool
)

func init() {
	cmd := newLsCmd()
	cmd.Flags().StringVar(&lsFrom, "from", "", "First key to list (inclusive)")
	cmd.Flags().StringVar(&lsTo, "to", "", "Last key to list (inclusive)")
	cmd.Flags().BoolVar(&lsInsertion, "insertion", false, "List in insertion order instead of key order")
	rootCmd.AddCommand(cmd)
}

func newLsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls <segment>",
		Short: "List keys and value sizes",
		Long: `The ls command lists catalog keys with their value sizes, in key order
by default or in insertion order with --insertion.

Example:
  heapctl ls cache
  heapctl ls cache --from user: --to user:~
  heapctl ls cache --insertion --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLs(cmd.Context(), args)
		},
	}
	return cmd
}

// ListEntry is one line of ls output.
type ListEntry struct {
	Key  string `json:"key"`
	Size int    `json:"size"`
}

func runLs(ctx context.Context, args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	entries := []ListEntry{}
	err = s.read(ctx, func() error {
		seq := s.cat.Range(lsFrom, lsTo)
		if lsInsertion {
			seq = s.cat.Each()
		}
		for k, v := range seq {
			entries = append(entries, ListEntry{Key: k, Size: len(v)})
		}
		return nil
	})
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(entries)
	}
	for _, e := range entries {
		printInfo("%-40s %s\n", e.Key, humanize.IBytes(uint64(e.Size)))
	}
	printVerbose("%d entries\n", len(entries))
	return nil
}
