package main

import (
	"context"
	"encoding/hex"
	"os"

	"github.com/spf13/cobra"
)

var getHex bool

func init() {
	cmd := newGetCmd()
	cmd.Flags().BoolVar(&getHex, "hex", false, "Print the value as hex")
	rootCmd.AddCommand(cmd)
}

func newGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <segment> <key>",
		Short: "Print the value stored under a key",
		Long: `The get command prints a value from the segment's catalog.

Example:
  heapctl get cache user:42
  heapctl get cache blob --hex`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(cmd.Context(), args)
		},
	}
	return cmd
}

func runGet(ctx context.Context, args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	var value []byte
	if err := s.read(ctx, func() error {
		value, err = s.cat.Get(args[1])
		return err
	}); err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{"key": args[1], "value": string(value), "size": len(value)})
	}
	if getHex {
		printInfo("%s\n", hex.EncodeToString(value))
		return nil
	}
	_, err = os.Stdout.Write(value)
	if err == nil && !quiet {
		printInfo("\n")
	}
	return err
}
