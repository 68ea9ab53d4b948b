package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var putStdin bool

func init() {
	cmd := newPutCmd()
	cmd.Flags().BoolVar(&putStdin, "stdin", false, "Read the value from standard input")
	rootCmd.AddCommand(cmd)
}

func newPutCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <segment> <key> [value]",
		Short: "Store a value under a key",
		Long: `The put command stores a value in the segment's catalog inside a
transaction. An existing key keeps its place in insertion order.

Example:
  heapctl put cache user:42 '{"name":"ada"}'
  heapctl put cache blob --stdin < data.bin`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(cmd.Context(), args)
		},
	}
	return cmd
}

func runPut(ctx context.Context, args []string) error {
	var value []byte
	switch {
	case putStdin:
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		value = b
	case len(args) == 3:
		value = []byte(args[2])
	default:
		return fmt.Errorf("put needs a value argument or --stdin")
	}

	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.write(ctx, func() error { return s.cat.Put(args[1], value) }); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(map[string]any{"segment": args[0], "key": args[1], "size": len(value), "success": true})
	}
	printVerbose("Stored %d bytes under %q\n", len(value), args[1])
	return nil
}
