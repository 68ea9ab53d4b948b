package catalog

import (
	"fmt"
	"testing"

	"github.com/joshuapare/relheap/heap/pool"
)

var sink []byte

func benchKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("key-%06d", i)
	}
	return keys
}

// BenchmarkGet compares catalog lookups with a Go map holding the same
// entries.
func BenchmarkGet(b *testing.B) {
	for _, n := range []int{100, 10000} {
		keys := benchKeys(n)
		value := []byte("value-00")

		b.Run(fmt.Sprintf("catalog/%d", n), func(b *testing.B) {
			_, c := newTestCatalog(b, pool.RequiredSize(256, n))
			for _, k := range keys {
				if err := c.Put(k, value); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				v, err := c.Get(keys[i%n])
				if err != nil {
					b.Fatal(err)
				}
				sink = v
				i++
			}
		})
		b.Run(fmt.Sprintf("map/%d", n), func(b *testing.B) {
			m := make(map[string][]byte, n)
			for _, k := range keys {
				m[k] = value
			}
			b.ReportAllocs()
			i := 0
			for b.Loop() {
				// Get returns a copy, so the map side copies too
				sink = append([]byte(nil), m[keys[i%n]]...)
				i++
			}
		})
	}
}

func BenchmarkPutDelete(b *testing.B) {
	const n = 1000
	keys := benchKeys(n)
	value := make([]byte, 64)

	b.Run(fmt.Sprintf("catalog/%d", n), func(b *testing.B) {
		_, c := newTestCatalog(b, pool.RequiredSize(256, n))
		b.ReportAllocs()
		for b.Loop() {
			for _, k := range keys {
				if err := c.Put(k, value); err != nil {
					b.Fatal(err)
				}
			}
			for _, k := range keys {
				if err := c.Delete(k); err != nil {
					b.Fatal(err)
				}
			}
		}
	})
	b.Run(fmt.Sprintf("map/%d", n), func(b *testing.B) {
		m := make(map[string][]byte, n)
		b.ReportAllocs()
		for b.Loop() {
			for _, k := range keys {
				m[k] = append([]byte(nil), value...)
			}
			for _, k := range keys {
				delete(m, k)
			}
		}
	})
}
