// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// MSQueue is an unbounded lock-free multi-producer multi-consumer queue.
//
// Based on the non-blocking queue by Michael and Scott (PODC 1996): a singly
// linked list with a sentinel head, a head link advanced by consumers and a
// tail link advanced by producers and helpers. Every mutation is a single
// CAS on head, tail or a node's next link.
//
// Nodes live in a grow-only arena and are recycled through a free list once
// their reference count drops to zero, so a node observed by an in-flight
// operation is never reused underneath it (no ABA on head, tail or next).
//
// Memory: one node per queued value plus the sentinel; retired nodes are
// reused by later pushes and returned to the runtime only by Free.
type MSQueue[T any] struct {
	_      pad
	head   atomix.Uint64 // Sentinel index (consumers)
	_      pad
	tail   atomix.Uint64 // Last or next-to-last node index (producers)
	_      pad
	closed atomix.Bool // Close marker linked
	_      pad
	rc     reclaimer[T]
}

// NewMSQueue creates an empty queue with default options.
func NewMSQueue[T any]() *MSQueue[T] {
	return newMSQueue[T](defaultChunkSize, 0)
}

func newMSQueue[T any](chunkSize, prealloc int) *MSQueue[T] {
	q := &MSQueue[T]{}
	q.rc.init(chunkSize, prealloc)

	s, _ := q.rc.alloc(kindSentinel)
	q.rc.retain(s) // One reference per link: head and tail
	q.head.StoreRelaxed(s)
	q.tail.StoreRelease(s)

	return q
}

// Enqueue appends an element at the tail of the queue.
// Returns ErrClosed if the queue was closed or freed.
func (q *MSQueue[T]) Enqueue(elem *T) error {
	if q.closed.LoadAcquire() {
		return ErrClosed
	}
	i, n := q.rc.alloc(kindValue)
	n.value = *elem
	return q.append(i)
}

// Close links the close marker behind the last value.
//
// Close is ordered with every Enqueue at its append CAS: values appended
// before it are still delivered, Enqueue calls ordered after it return
// ErrClosed. Consumers receive ErrClosed once they reach the marker.
// Returns ErrClosed if the queue is already closed.
func (q *MSQueue[T]) Close() error {
	if q.closed.LoadAcquire() {
		return ErrClosed
	}
	i, _ := q.rc.alloc(kindClosed)
	if err := q.append(i); err != nil {
		return err
	}
	q.closed.StoreRelease(true)
	return nil
}

// append links node i (holding the caller's reference) after the last node
// and consumes that reference.
func (q *MSQueue[T]) append(i uint64) error {
	sw := spin.Wait{}
	for {
		t := q.rc.safeRead(&q.tail)
		if t == nilIndex {
			q.rc.release(i)
			return ErrClosed
		}
		tn := q.rc.arena.at(t)

		next := q.rc.safeRead(&tn.next)
		if next != nilIndex {
			// Tail is lagging: help advance it and walk forward
			q.rc.casLink(&q.tail, t, next)
			q.rc.release(next)
			q.rc.release(t)
			continue
		}

		if tn.kind == kindClosed {
			q.rc.release(t)
			q.rc.release(i)
			return ErrClosed
		}

		if q.rc.casLink(&tn.next, nilIndex, i) {
			// Best effort: a failure means a helper already moved tail
			q.rc.casLink(&q.tail, t, i)
			q.rc.release(t)
			q.rc.release(i)
			return nil
		}
		q.rc.release(t)
		sw.Once()
	}
}

// Dequeue removes and returns the element at the head of the queue.
// Returns (zero-value, ErrWouldBlock) if the queue is currently empty,
// (zero-value, ErrClosed) once a closed queue is drained or after Free.
func (q *MSQueue[T]) Dequeue() (T, error) {
	var zero T
	sw := spin.Wait{}
	for {
		h := q.rc.safeRead(&q.head)
		if h == nilIndex {
			return zero, ErrClosed
		}
		hn := q.rc.arena.at(h)

		next := q.rc.safeRead(&hn.next)
		if next == nilIndex {
			q.rc.release(h)
			return zero, ErrWouldBlock
		}
		nn := q.rc.arena.at(next)
		if nn.kind == kindClosed {
			q.rc.release(next)
			q.rc.release(h)
			return zero, ErrClosed
		}

		// Keep tail from falling behind head
		if q.tail.LoadAcquire() == h {
			q.rc.casLink(&q.tail, h, next)
		}

		if q.rc.casLink(&q.head, h, next) {
			// next is the new sentinel; only this thread reads its value
			elem := nn.value
			nn.value = zero
			q.rc.release(next)
			q.rc.release(h)
			return elem, nil
		}
		q.rc.release(next)
		q.rc.release(h)
		sw.Once()
	}
}

// IsEmpty reports whether no value is currently available to Dequeue.
// The answer may be stale by the time the caller acts on it.
func (q *MSQueue[T]) IsEmpty() bool {
	h := q.rc.safeRead(&q.head)
	if h == nilIndex {
		return true
	}
	next := q.rc.safeRead(&q.rc.arena.at(h).next)
	empty := next == nilIndex || q.rc.arena.at(next).kind == kindClosed
	q.rc.release(next)
	q.rc.release(h)
	return empty
}

// Free reclaims every node, including undrained values and the close
// marker, and drops the node arena.
//
// Free must not run concurrently with any other operation on q. Afterwards
// Enqueue and Dequeue return ErrClosed and Stats reports zero live nodes.
// Calling Free more than once is a no-op.
func (q *MSQueue[T]) Free() {
	h := q.head.LoadAcquire()
	t := q.tail.LoadAcquire()
	if h == nilIndex {
		return
	}
	q.closed.StoreRelease(true)
	q.head.StoreRelease(nilIndex)
	q.tail.StoreRelease(nilIndex)
	q.rc.release(h)
	q.rc.release(t)
	q.rc.arena.drop()
}

// Stats returns a snapshot of the node reclamation counters.
func (q *MSQueue[T]) Stats() Stats {
	return q.rc.stats()
}
