// Package dirty provides page-level dirty tracking for spans backed by a
// mapped file.
//
// # Overview
//
// A pool and the containers built on it touch a few bytes here and there. The
// tracker records every touched range, and at commit time rounds them to 4KB
// pages, merges neighbours, and flushes only those pages to the backing file.
//
// # Usage
//
// Creating a tracker:
//
//	tracker := dirty.NewTracker(span)
//	p, err := pool.Format(span.Bytes(), &pool.Options{Tracker: tracker})
//
// Flushing after a batch of changes:
//
//	if err := tracker.FlushDataOnly(ctx); err != nil {
//	    return err
//	}
//	// Header page last, then fdatasync.
//	if err := tracker.FlushHeaderAndMeta(ctx, dirty.FlushAuto); err != nil {
//	    return err
//	}
//
// # Page-Level Granularity
//
// The tracker operates at 4KB (0x1000 byte) page boundaries:
//   - Modifications are rounded to page boundaries
//   - A 1-byte change marks the entire 4KB page dirty
//   - Consecutive dirty pages are merged into a single flush
//
//	Dirty pages: [0, 1, 2, 5, 6] → Ranges: [0x0-0x3000, 0x5000-0x7000]
//
// The first page carries the pool header. FlushDataOnly skips it so the
// header, which records the transaction sequence numbers, always reaches
// the file after the data it describes.
//
// # Thread Safety
//
// Tracker instances are not thread-safe. Callers must synchronize access
// externally or use the tx package for transactional safety.
//
// # Related Packages
//
//   - github.com/joshuapare/relheap/heap/tx: Transaction management with auto-tracking
//   - github.com/joshuapare/relheap/heap/pool: Allocator that reports the ranges it writes
package dirty
