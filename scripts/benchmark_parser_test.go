package main

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleOutput = `goos: linux
BenchmarkAlloc/pool/256B-8         	25000000	        45.00 ns/op	       0 B/op	       0 allocs/op
BenchmarkAlloc/goheap/256B-8       	10000000	        90.00 ns/op	     256 B/op	       1 allocs/op
{"Action":"output","Output":"BenchmarkGet/catalog/100-8   5000000   200.0 ns/op   8 B/op   1 allocs/op\n"}
BenchmarkGet/map/100-8             	20000000	        50.00 ns/op	       8 B/op	       1 allocs/op
BenchmarkAllocFreeHalves-8         	     300	   4000000 ns/op	       0 B/op	       0 allocs/op
PASS
`

func TestParseBenchmarks(t *testing.T) {
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(sampleOutput)))
	require.Len(t, results, 5)

	assert.Equal(t, BenchmarkResult{
		Name:        "BenchmarkAlloc/pool/256B-8",
		Operation:   "Alloc",
		Variant:     "256B",
		Impl:        "pool",
		Iterations:  25000000,
		NsPerOp:     45,
		BytesPerOp:  0,
		AllocsPerOp: 0,
	}, results[0])
	assert.Equal(t, "catalog", results[2].Impl, "JSON test events are unwrapped")
	assert.Equal(t, "AllocFreeHalves", results[4].Operation)
	assert.Equal(t, "-", results[4].Impl)
}

func TestGenerateComparisons(t *testing.T) {
	results := parseBenchmarks(bufio.NewScanner(strings.NewReader(sampleOutput)))
	pairs, err := parsePairs("pool=goheap,catalog=map")
	require.NoError(t, err)

	comps := generateComparisons(results, pairs)
	require.Len(t, comps, 2)

	assert.Equal(t, "Alloc", comps[0].Operation)
	assert.InDelta(t, 2.0, comps[0].Speedup, 1e-9)
	assert.Equal(t, "Get", comps[1].Operation)
	assert.InDelta(t, 0.25, comps[1].Speedup, 1e-9)

	report := generateMarkdownReport(comps)
	assert.Contains(t, report, "| Alloc | 256B | pool 45 | goheap 90 | **2.00x** ✓")
	assert.Contains(t, report, "**Lookup**: 0.25x")
}

func TestParsePairs_Errors(t *testing.T) {
	for _, in := range []string{"", "pool", "=map", "pool="} {
		_, err := parsePairs(in)
		assert.Error(t, err, in)
	}
}

func TestTrimProcs(t *testing.T) {
	assert.Equal(t, "BenchmarkAlloc/pool/256B", trimProcs("BenchmarkAlloc/pool/256B-8"))
	assert.Equal(t, "BenchmarkGet/by-key", trimProcs("BenchmarkGet/by-key"))
}
