// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msq provides an unbounded lock-free FIFO queue.
//
// [MSQueue] is the Michael & Scott non-blocking queue: a singly linked list
// with a sentinel head, mutated only by single-word CAS on the head link,
// the tail link and each node's next link. Any number of producers and
// consumers may operate concurrently; no operation ever takes a lock.
//
// # Quick Start
//
// Direct constructor:
//
//	q := msq.NewMSQueue[Event]()
//
// Builder API:
//
//	q := msq.Build[Event](msq.New().ChunkSize(1024).Prealloc(4096))
//
// Producer/consumer handles:
//
//	tx, rx := msq.NewChannel[Event]()
//
// # Basic Usage
//
//	q := msq.NewMSQueue[int]()
//
//	// Enqueue (never blocks, never full)
//	value := 42
//	if err := q.Enqueue(&value); err != nil {
//	    // ErrClosed: the queue was closed
//	}
//
//	// Dequeue (non-blocking)
//	elem, err := q.Dequeue()
//	if msq.IsWouldBlock(err) {
//	    // Nothing available right now - try again later
//	}
//
// # Ordering
//
// Values from one producer are dequeued in the order that producer enqueued
// them. Values from different producers are ordered by whichever append CAS
// succeeded first. A Dequeue that returns [ErrWouldBlock] is a transient
// observation: a concurrent Enqueue may complete immediately after.
//
// # Closing
//
// [MSQueue.Close] links a close marker behind the last value with the same
// CAS as Enqueue, so it is ordered with every Enqueue:
//
//	// Producers finish
//	prodWg.Wait()
//	q.Close()
//
//	// Consumers drain until ErrClosed
//	for {
//	    v, err := q.Dequeue()
//	    if msq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    if err != nil {
//	        break // ErrClosed: every value before the marker was delivered
//	    }
//	    process(v)
//	}
//
// Enqueue calls ordered after the marker return [ErrClosed]. The handle API
// ([Sender], [Receiver]) closes the queue when its last Sender is closed,
// which gives consumers a race-free end-of-stream signal without polling
// external "done" flags.
//
// # Memory Reclamation
//
// Nodes are allocated from a grow-only arena and addressed by 32-bit
// indices. A node is reclaimed onto a lock-free free list when its
// reference count drops to zero. Every link holds one reference and every
// operation that dereferences a node loaded from a shared link holds one
// for the duration, so a node is never recycled while any goroutine may
// still read it. This rules out use-after-free and the ABA problem on the
// queue links; the free list itself uses a tagged top word.
//
// [MSQueue.Free] (or closing the last handle) reclaims every remaining node
// and releases the arena. [Stats] exposes allocation and reclamation
// counters; after Free, Stats.Live reports zero.
//
// Arena exhaustion (2^32-1 nodes) panics: the queue cannot make progress
// without a new node.
//
// # Error Handling
//
// Dequeue returns [ErrWouldBlock] when the queue is empty. This error is
// sourced from [code.hybscloud.com/iox] for ecosystem consistency.
//
//	msq.IsWouldBlock(err)  // true if queue empty
//	msq.IsClosed(err)      // true if queue or handle closed
//	msq.IsSemantic(err)    // true if control flow signal
//	msq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// CAS contention is retried internally and never surfaced.
//
// # Race Detection
//
// Node values and kinds are plain fields published through atomic links.
// Go's race detector may report false positives for such cross-variable
// acquire-release synchronization. Concurrent tests on the queue are
// skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, and [code.hybscloud.com/spin] for CPU pause instructions.
package msq
