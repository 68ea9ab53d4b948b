package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/relheap/heap/shm"
	"github.com/joshuapare/relheap/internal/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const defaultRefresh = 2 * time.Second

func main() {
	args := os.Args[1:]
	debugMode := false
	demoMode := false
	refresh := defaultRefresh

	// Flags may appear anywhere; what is left is the segment name
	filteredArgs := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case arg == "--debug" || arg == "-d":
			debugMode = true
		case arg == "--demo":
			demoMode = true
		case strings.HasPrefix(arg, "--shm-dir="):
			if err := os.Setenv(shm.EnvDir, strings.TrimPrefix(arg, "--shm-dir=")); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		case strings.HasPrefix(arg, "--refresh="):
			d, err := time.ParseDuration(strings.TrimPrefix(arg, "--refresh="))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: invalid --refresh: %v\n", err)
				os.Exit(1)
			}
			refresh = d
		default:
			filteredArgs = append(filteredArgs, arg)
		}
	}

	// Logging goes to a file; the terminal belongs to the UI
	closeLog, err := initLogging(debugMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to init logging: %v\n", err)
	}
	defer closeLog()

	if len(filteredArgs) > 0 {
		switch filteredArgs[0] {
		case "--help", "-h":
			printHelp()
			return
		case "--version", "-v":
			fmt.Printf("heapexplorer %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built: %s\n", date)
			return
		}
	}

	var store *Store
	switch {
	case demoMode:
		store, err = NewDemoStore()
	case len(filteredArgs) == 1:
		store, err = OpenStore(filteredArgs[0])
	default:
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		logger.L.Error("open failed", "error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.L.Info("starting heapexplorer", "segment", store.Name(), "refresh", refresh)

	p := tea.NewProgram(
		NewModel(store, refresh),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	finalModel, err := p.Run()
	if err != nil {
		logger.L.Error("TUI error", "error", err)
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		_ = store.Close()
		os.Exit(1)
	}

	if model, ok := finalModel.(Model); ok {
		if err := model.Close(); err != nil {
			logger.L.Warn("error closing segment", "error", err)
		}
	}
	logger.L.Info("heapexplorer exited normally")
}

// initLogging points the shared logger at ~/.heapexplorer/logs when debug
// is on, and discards otherwise.
func initLogging(debug bool) (func(), error) {
	noop := func() {}
	if !debug {
		logger.Init(logger.Options{})
		return noop, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return noop, err
	}
	dir := filepath.Join(home, ".heapexplorer", "logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return noop, err
	}
	name := filepath.Join(dir, "heapexplorer-"+time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return noop, err
	}
	logger.Init(logger.Options{Enabled: true, Output: f, Level: slog.LevelDebug})
	return func() { _ = f.Close() }, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: heapexplorer [options] <segment>\n")
	fmt.Fprintf(os.Stderr, "Try 'heapexplorer --help' for more information.\n")
}

func printHelp() {
	fmt.Println("heapexplorer - Interactive TUI for relocatable heaps in shared memory")
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  heapexplorer [options] <segment>")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Attaches to a named segment created with 'heapctl create' and browses")
	fmt.Println("  the catalog stored in it. The view refreshes periodically, so writes")
	fmt.Println("  from other processes appear while it runs.")
	fmt.Println()
	fmt.Println("  Navigation:")
	fmt.Println("    ↑/k, ↓/j    Move up/down")
	fmt.Println("    Enter       Show the selected value")
	fmt.Println("    /           Filter keys")
	fmt.Println("    o           Toggle key/insertion order")
	fmt.Println("    d           Delete the selected entry")
	fmt.Println("    ?           Show help")
	fmt.Println("    q           Quit")
	fmt.Println()
	fmt.Println("OPTIONS:")
	fmt.Println("  -d, --debug        Enable debug logging to ~/.heapexplorer/logs/")
	fmt.Println("  --demo             Browse a private heap filled with sample entries")
	fmt.Println("  --refresh=DUR      Re-read interval, 0 to disable (default 2s)")
	fmt.Println("  --shm-dir=DIR      Directory holding segments (default $" + shm.EnvDir + ")")
	fmt.Println("  -h, --help         Show this help message")
	fmt.Println("  -v, --version      Show version information")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  heapexplorer cache")
	fmt.Println("  heapexplorer --refresh=500ms cache")
	fmt.Println()
	fmt.Println("For scripted operations, use the 'heapctl' command instead.")
}
