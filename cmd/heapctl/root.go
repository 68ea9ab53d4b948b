package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/internal/logger"
)

var (
	// Global flags
	verbose  bool
	quiet    bool
	jsonOut  bool
	shmDir   string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "heapctl",
	Short: "Create, inspect and edit relocatable heaps in shared memory",
	Long: `heapctl manages pools formatted inside named shared-memory segments.
Each segment holds a pool whose root is a catalog of key/value entries, so
several processes can map the same heap and see the same data.`,
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if shmDir != "" {
			if err := os.Setenv(shm.EnvDir, shmDir); err != nil {
				return err
			}
		}
		logger.Init(logger.Options{
			Enabled: verbose || logLevel != "",
			Level:   logger.ParseLevel(logLevel),
		})
		return nil
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVar(&shmDir, "shm-dir", "", "Directory holding segments (default $"+shm.EnvDir+" or /dev/shm)")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log to stderr at level (debug, info, warn, error)")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(os.Stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
