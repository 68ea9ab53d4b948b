package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// BenchmarkResult represents a parsed benchmark result.
type BenchmarkResult struct {
	Name        string
	Operation   string
	Variant     string // size or entry count, e.g. "256B" or "10000"
	Impl        string // "pool", "goheap", "catalog", "map", ...
	Iterations  int
	NsPerOp     float64
	BytesPerOp  int64
	AllocsPerOp int64
}

// ComparisonResult pairs a relheap implementation with its Go baseline.
type ComparisonResult struct {
	Operation      string
	Variant        string
	Subject        string
	Baseline       string
	SubjectNs      float64
	BaselineNs     float64
	Speedup        float64
	SubjectMem     int64
	BaselineMem    int64
	SubjectAllocs  int64
	BaselineAllocs int64
	SubjectOnly    bool
}

var (
	inputFile = flag.String(
		"input",
		"",
		"Input file with benchmark output (stdin if not specified)",
	)
	outputFile = flag.String("output", "", "Output markdown file (stdout if not specified)")
	quiet      = flag.Bool("quiet", false, "Suppress progress output")
	pairsFlag  = flag.String(
		"pairs",
		"pool=goheap,catalog=map",
		"Comma-separated subject=baseline implementation pairs",
	)
)

// benchmarkRegex matches lines such as
// BenchmarkAlloc/pool/256B-8    1000000    45.2 ns/op    0 B/op    0 allocs/op
var benchmarkRegex = regexp.MustCompile(
	`^(Benchmark\S+)\s+(\d+)\s+([\d.]+)\s+ns/op(?:\s+([\d.]+)\s+(?:B|MB)/op)?(?:\s+([\d.]+)\s+allocs/op)?`,
)

func main() {
	flag.Parse()

	pairs, err := parsePairs(*pairsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var in io.Reader = os.Stdin
	if *inputFile != "" {
		f, err := os.Open(*inputFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening input file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		in = f
	}

	results := parseBenchmarks(bufio.NewScanner(in))
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Parsed %d benchmark results\n", len(results))
	}

	comparisons := generateComparisons(results, pairs)
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Generated %d comparisons\n", len(comparisons))
	}

	report := generateMarkdownReport(comparisons)

	if *outputFile == "" {
		fmt.Fprint(os.Stdout, report)
		return
	}
	if err := os.WriteFile(*outputFile, []byte(report), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
		os.Exit(1)
	}
	if !*quiet {
		fmt.Fprintf(os.Stderr, "Report written to %s\n", *outputFile)
	}
}

// parsePairs reads "a=b,c=d" into a subject to baseline map.
func parsePairs(s string) (map[string]string, error) {
	pairs := make(map[string]string)
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		subject, baseline, ok := strings.Cut(p, "=")
		if !ok || subject == "" || baseline == "" {
			return nil, fmt.Errorf("bad pair %q, want subject=baseline", p)
		}
		pairs[subject] = baseline
	}
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no implementation pairs given")
	}
	return pairs, nil
}

func parseBenchmarks(scanner *bufio.Scanner) []BenchmarkResult {
	var results []BenchmarkResult

	for scanner.Scan() {
		line := scanner.Text()

		// Lines may come from go test -json
		var testEvent map[string]any
		if err := json.Unmarshal([]byte(line), &testEvent); err == nil {
			if output, ok := testEvent["Output"].(string); ok {
				line = output
			}
		}

		r, ok := parseLine(strings.TrimSpace(line))
		if ok {
			results = append(results, r)
		}
	}

	return results
}

// parseLine splits Benchmark<Operation>/<impl>/<variant>-<procs>. Names
// without an implementation segment are reported under the impl "-".
func parseLine(line string) (BenchmarkResult, bool) {
	matches := benchmarkRegex.FindStringSubmatch(line)
	if matches == nil {
		return BenchmarkResult{}, false
	}

	r := BenchmarkResult{Name: matches[1]}
	r.Iterations, _ = strconv.Atoi(matches[2])
	r.NsPerOp, _ = strconv.ParseFloat(matches[3], 64)
	if matches[4] != "" {
		r.BytesPerOp, _ = strconv.ParseInt(matches[4], 10, 64)
	}
	if matches[5] != "" {
		r.AllocsPerOp, _ = strconv.ParseInt(matches[5], 10, 64)
	}

	parts := strings.Split(trimProcs(r.Name), "/")
	r.Operation = strings.TrimPrefix(parts[0], "Benchmark")
	switch len(parts) {
	case 1:
		r.Impl = "-"
	case 2:
		r.Impl = parts[1]
	default:
		r.Impl = parts[1]
		r.Variant = strings.Join(parts[2:], "/")
	}
	return r, true
}

// trimProcs drops the -N GOMAXPROCS suffix.
func trimProcs(name string) string {
	i := strings.LastIndex(name, "-")
	if i <= 0 {
		return name
	}
	if _, err := strconv.Atoi(name[i+1:]); err != nil {
		return name
	}
	return name[:i]
}

func generateComparisons(results []BenchmarkResult, pairs map[string]string) []ComparisonResult {
	type key struct {
		operation string
		variant   string
	}

	grouped := make(map[key]map[string]BenchmarkResult)
	for _, result := range results {
		k := key{result.Operation, result.Variant}
		if grouped[k] == nil {
			grouped[k] = make(map[string]BenchmarkResult)
		}
		grouped[k][result.Impl] = result
	}

	var comparisons []ComparisonResult
	for k, impls := range grouped {
		for subjectName, baselineName := range pairs {
			subject, hasSubject := impls[subjectName]
			if !hasSubject {
				continue
			}
			c := ComparisonResult{
				Operation:     k.operation,
				Variant:       k.variant,
				Subject:       subjectName,
				Baseline:      baselineName,
				SubjectNs:     subject.NsPerOp,
				SubjectMem:    subject.BytesPerOp,
				SubjectAllocs: subject.AllocsPerOp,
			}
			if baseline, ok := impls[baselineName]; ok && subject.NsPerOp > 0 {
				c.BaselineNs = baseline.NsPerOp
				c.BaselineMem = baseline.BytesPerOp
				c.BaselineAllocs = baseline.AllocsPerOp
				c.Speedup = baseline.NsPerOp / subject.NsPerOp
			} else {
				c.SubjectOnly = true
			}
			comparisons = append(comparisons, c)
		}
	}

	sort.Slice(comparisons, func(i, j int) bool {
		a, b := comparisons[i], comparisons[j]
		if a.Operation != b.Operation {
			return a.Operation < b.Operation
		}
		if a.Subject != b.Subject {
			return a.Subject < b.Subject
		}
		return a.Variant < b.Variant
	})

	return comparisons
}

func generateMarkdownReport(comparisons []ComparisonResult) string {
	var sb strings.Builder

	sb.WriteString("# Benchmark Report\n\n")
	fmt.Fprintf(&sb, "Generated: %s\n\n", time.Now().Format("2006-01-02 15:04:05"))

	faster, slower, only := 0, 0, 0
	totalSpeedup := 0.0
	for _, comp := range comparisons {
		switch {
		case comp.SubjectOnly:
			only++
		case comp.Speedup > 1.0:
			faster++
		case comp.Speedup < 1.0:
			slower++
		}
		if !comp.SubjectOnly {
			totalSpeedup += comp.Speedup
		}
	}

	comparable := len(comparisons) - only
	sb.WriteString("## Summary\n\n")
	fmt.Fprintf(&sb, "- **Total benchmarks**: %d\n", len(comparisons))
	fmt.Fprintf(&sb, "- **Comparable** (with a baseline): %d\n", comparable)
	if comparable > 0 {
		fmt.Fprintf(&sb, "  - relheap faster: %d (%.1f%%)\n", faster, float64(faster)/float64(comparable)*100)
		fmt.Fprintf(&sb, "  - baseline faster: %d (%.1f%%)\n", slower, float64(slower)/float64(comparable)*100)
		fmt.Fprintf(&sb, "  - Average speedup: **%.2fx**\n", totalSpeedup/float64(comparable))
	}
	fmt.Fprintf(&sb, "- **Without a baseline**: %d\n\n", only)

	sb.WriteString("## Detailed Results\n\n")
	sb.WriteString("| Operation | Variant | Subject (ns/op) | Baseline (ns/op) | Speedup | Memory (B/op) | Allocs |\n")
	sb.WriteString("|-----------|---------|-----------------|------------------|---------|---------------|--------|\n")

	for _, comp := range comparisons {
		if comp.SubjectOnly {
			fmt.Fprintf(&sb, "| %s | %s | %s %s | *N/A* | *no baseline* | %s | %s |\n",
				comp.Operation,
				comp.Variant,
				comp.Subject,
				formatNumber(comp.SubjectNs),
				formatBytes(comp.SubjectMem),
				formatNumber(float64(comp.SubjectAllocs)),
			)
			continue
		}

		indicator, speedupStyle := "✓", "**"
		if comp.Speedup < 1.0 {
			indicator, speedupStyle = "✗", ""
		}
		fmt.Fprintf(&sb, "| %s | %s | %s %s | %s %s | %s%.2fx%s %s | %s vs %s%s | %s vs %s%s |\n",
			comp.Operation,
			comp.Variant,
			comp.Subject,
			formatNumber(comp.SubjectNs),
			comp.Baseline,
			formatNumber(comp.BaselineNs),
			speedupStyle,
			comp.Speedup,
			speedupStyle,
			indicator,
			formatBytes(comp.SubjectMem),
			formatBytes(comp.BaselineMem),
			lowerIsBetter(comp.SubjectMem, comp.BaselineMem),
			formatNumber(float64(comp.SubjectAllocs)),
			formatNumber(float64(comp.BaselineAllocs)),
			lowerIsBetter(comp.SubjectAllocs, comp.BaselineAllocs),
		)
	}
	sb.WriteString("\n")

	sb.WriteString("## Performance by Category\n\n")
	categories := categorizeOperations(comparisons)
	names := make([]string, 0, len(categories))
	for name := range categories {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, category := range names {
		avg, count := 0.0, 0
		for _, comp := range categories[category] {
			if !comp.SubjectOnly {
				avg += comp.Speedup
				count++
			}
		}
		if count == 0 {
			fmt.Fprintf(&sb, "- **%s**: no baseline\n", category)
			continue
		}
		avg /= float64(count)
		status := "✓"
		if avg < 1.0 {
			status = "✗"
		}
		fmt.Fprintf(&sb, "- %s **%s**: %.2fx average speedup\n", status, category, avg)
	}
	sb.WriteString("\n")

	sb.WriteString("## Notes\n\n")
	sb.WriteString("- **Speedup > 1.0**: the relheap implementation is faster ✓\n")
	sb.WriteString("- **Speedup < 1.0**: the Go baseline is faster ✗\n")
	sb.WriteString("- **Memory** and **Allocs** count Go heap use only; pool blocks live in the span\n")

	return sb.String()
}

func lowerIsBetter(subject, baseline int64) string {
	switch {
	case subject < baseline:
		return " ✓"
	case subject > baseline:
		return " ✗"
	}
	return ""
}

func categorizeOperations(comparisons []ComparisonResult) map[string][]ComparisonResult {
	categories := make(map[string][]ComparisonResult)
	for _, comp := range comparisons {
		op := strings.ToLower(comp.Operation)

		var category string
		switch {
		case strings.Contains(op, "alloc") || strings.Contains(op, "free") || strings.Contains(op, "churn"):
			category = "Allocation"
		case strings.Contains(op, "get") || strings.Contains(op, "range") || strings.Contains(op, "lookup"):
			category = "Lookup"
		case strings.Contains(op, "put") || strings.Contains(op, "delete") || strings.Contains(op, "evict"):
			category = "Update"
		default:
			category = "Other"
		}
		categories[category] = append(categories[category], comp)
	}
	return categories
}

func formatNumber(n float64) string {
	if n >= 1000000 {
		return fmt.Sprintf("%.2fM", n/1000000)
	} else if n >= 1000 {
		return fmt.Sprintf("%.1fK", n/1000)
	}
	return fmt.Sprintf("%.0f", n)
}

func formatBytes(b int64) string {
	if b < 0 {
		return "-"
	}
	return humanize.IBytes(uint64(b))
}
