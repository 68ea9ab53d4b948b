// Package tx provides transactions over a pool formatted in a mapped span.
//
// # Overview
//
// A transaction brackets a series of pool, tree and list operations with the
// pool header's sequence pair and an optional cross-process lock:
//
//  1. Begin(): take the lock, increment the primary sequence, mark the header dirty
//  2. Apply modifications (reported to the dirty tracker by the pool and containers)
//  3. Commit(): flush data pages, set secondary = primary, flush the header, unlock
//  4. Rollback(): unlock without flushing
//
// # Sequence Protocol
//
// The pool header stores two 32-bit sequence numbers:
//   - Primary (offset 0x40): written at Begin()
//   - Secondary (offset 0x44): written at Commit()
//   - Equal sequences mean the span is consistent
//   - Different sequences mean a writer stopped between Begin and Commit
//
// pool.Attach logs a warning when it finds unequal sequences. Consistent
// reports the same condition to callers that want to refuse or repair.
//
// # Ordered Flush
//
// Commit flushes every dirty data page before it writes the secondary
// sequence, and flushes the header page last. After a crash the header
// therefore never claims a commit whose data did not reach the file.
//
// # Locking
//
// The Locker is usually a *shm.Segment. With a nil Locker the Manager only
// sequences and flushes, which suits single-process file spans.
//
//	seg, _ := shm.Create("cache", 1<<20)
//	dt := dirty.NewTracker(seg.Span())
//	p, _ := pool.Attach(seg.Bytes(), &pool.Options{Tracker: dt})
//	m := tx.NewManager(p, seg, dt, dirty.FlushAuto)
//
//	err := m.Run(ctx, func() error {
//	    _, _, err := p.Alloc(64)
//	    return err
//	})
//
// # Flush Modes
//
// FlushAuto msyncs data and header and fdatasyncs once. FlushDataOnly skips
// the fdatasync. FlushFull adds F_FULLFSYNC on macOS.
//
// # Thread Safety
//
// A Manager is NOT thread-safe. Separate processes, or separate Managers in
// one process, exclude each other through the Locker.
package tx
