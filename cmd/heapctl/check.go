package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newCheckCmd())
}

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <segment>",
		Short: "Verify heap and catalog invariants",
		Long: `The check command walks every block of the pool and the catalog's tree
and list, and reports the first inconsistency found.

Example:
  heapctl check cache`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), args)
		},
	}
	return cmd
}

func runCheck(ctx context.Context, args []string) error {
	s, err := openStore(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	var poolErr, catErr error
	if err := s.read(ctx, func() error {
		poolErr = s.p.Check()
		if poolErr == nil {
			catErr = s.cat.Check()
		}
		return nil
	}); err != nil {
		return err
	}

	if jsonOut {
		result := map[string]any{"segment": args[0], "ok": poolErr == nil && catErr == nil}
		if poolErr != nil {
			result["pool"] = poolErr.Error()
		}
		if catErr != nil {
			result["catalog"] = catErr.Error()
		}
		if err := printJSON(result); err != nil {
			return err
		}
	}
	switch {
	case poolErr != nil:
		return fmt.Errorf("pool: %w", poolErr)
	case catErr != nil:
		return catErr
	}
	if !jsonOut {
		printInfo("%s: ok\n", args[0])
	}
	return nil
}
