// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/atomix"

// channel is the state shared by every handle of one queue.
type channel[T any] struct {
	q       *MSQueue[T]
	_       padPtr
	senders atomix.Int64 // Open Sender handles
	_       pad
	owners  atomix.Int64 // Open handles of either kind
}

// NewChannel creates a queue and returns its first Sender and Receiver.
//
// Handles are independent shared owners of the queue:
//
//   - Clone a Sender for every producer goroutine and Close each clone when
//     it is done. Closing the last Sender closes the queue, so receivers
//     get ErrClosed after draining instead of ErrWouldBlock.
//   - Clone a Receiver for every consumer goroutine.
//   - Closing the last handle of either kind frees every remaining node.
//
// Example:
//
//	tx, rx := msq.NewChannel[int]()
//
//	for w := range 3 {
//	    ptx, _ := tx.Clone()
//	    go func() {
//	        defer ptx.Close()
//	        v := w
//	        ptx.Enqueue(&v)
//	    }()
//	}
//	tx.Close()
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := rx.Dequeue()
//	    if msq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    if err != nil {
//	        break // all senders closed, queue drained
//	    }
//	    backoff.Reset()
//	    use(v)
//	}
//	rx.Close()
func NewChannel[T any]() (*Sender[T], *Receiver[T]) {
	return newChannel(NewMSQueue[T]())
}

func newChannel[T any](q *MSQueue[T]) (*Sender[T], *Receiver[T]) {
	ch := &channel[T]{q: q}
	ch.senders.StoreRelaxed(1)
	ch.owners.StoreRelease(2)
	return &Sender[T]{ch: ch}, &Receiver[T]{ch: ch}
}

// join increments c unless it already reached zero.
func join(c *atomix.Int64) bool {
	for {
		n := c.LoadAcquire()
		if n <= 0 {
			return false
		}
		if c.CompareAndSwapAcqRel(n, n+1) {
			return true
		}
	}
}

// enter pins the queue for one handle operation. Every successful enter
// must be paired with leave, so a concurrent Close of the last handle
// frees the queue only after the operation returns.
func (ch *channel[T]) enter() bool {
	return join(&ch.owners)
}

// leave drops one owner; the last owner frees the queue.
func (ch *channel[T]) leave() {
	if ch.owners.AddAcqRel(-1) == 0 {
		ch.q.Free()
	}
}

// handle is the close-once state of a single Sender or Receiver.
type handle struct {
	closed atomix.Int32
}

func (h *handle) isClosed() bool {
	return h.closed.LoadAcquire() != 0
}

func (h *handle) markClosed() bool {
	return h.closed.CompareAndSwapAcqRel(0, 1)
}

// Sender is a producer handle. It is safe for concurrent use, though the
// usual pattern is one clone per producer goroutine. Close may race with
// Enqueue on the same handle: an Enqueue already in flight completes (or
// fails with ErrClosed) before the queue can be freed.
type Sender[T any] struct {
	handle
	ch *channel[T]
}

// Enqueue appends an element at the tail of the queue.
// Returns ErrClosed if this handle or the queue is closed.
func (s *Sender[T]) Enqueue(elem *T) error {
	if s.isClosed() || !s.ch.enter() {
		return ErrClosed
	}
	defer s.ch.leave()
	return s.ch.q.Enqueue(elem)
}

// Clone returns a new Sender over the same queue.
// Returns ErrClosed if s is closed or the queue no longer accepts senders.
func (s *Sender[T]) Clone() (*Sender[T], error) {
	if s.isClosed() {
		return nil, ErrClosed
	}
	if !join(&s.ch.owners) {
		return nil, ErrClosed
	}
	if !join(&s.ch.senders) {
		s.ch.leave()
		return nil, ErrClosed
	}
	return &Sender[T]{ch: s.ch}, nil
}

// Close releases the handle. The last Sender closes the queue; the last
// handle of either kind frees it.
// Returns ErrClosed if s was already closed.
func (s *Sender[T]) Close() error {
	if !s.markClosed() {
		return ErrClosed
	}
	if s.ch.senders.AddAcqRel(-1) == 0 {
		s.ch.q.Close()
	}
	s.ch.leave()
	return nil
}

// Receiver is a consumer handle. Clones may dequeue concurrently.
type Receiver[T any] struct {
	handle
	ch *channel[T]
}

// Dequeue removes and returns the element at the head of the queue.
// Returns (zero-value, ErrWouldBlock) if no value is available yet, and
// (zero-value, ErrClosed) once every Sender is closed and the queue is
// drained, or if this handle is closed.
func (r *Receiver[T]) Dequeue() (T, error) {
	if r.isClosed() || !r.ch.enter() {
		var zero T
		return zero, ErrClosed
	}
	defer r.ch.leave()
	return r.ch.q.Dequeue()
}

// IsEmpty reports whether no value is currently available.
func (r *Receiver[T]) IsEmpty() bool {
	if r.isClosed() || !r.ch.enter() {
		return true
	}
	defer r.ch.leave()
	return r.ch.q.IsEmpty()
}

// ProducersRemaining reports whether any Sender is still open.
//
// This is a liveness hint: false means no further value will be appended,
// true means more may arrive. Use ErrClosed from Dequeue for a definitive
// end of stream.
func (r *Receiver[T]) ProducersRemaining() bool {
	return r.ch.senders.LoadAcquire() > 0
}

// Clone returns a new Receiver over the same queue.
// Returns ErrClosed if r is closed.
func (r *Receiver[T]) Clone() (*Receiver[T], error) {
	if r.isClosed() || !join(&r.ch.owners) {
		return nil, ErrClosed
	}
	return &Receiver[T]{ch: r.ch}, nil
}

// Close releases the handle. The last handle of either kind frees the
// queue and every node still in it, once any Dequeue or IsEmpty already in
// flight on a handle has returned.
// Returns ErrClosed if r was already closed.
func (r *Receiver[T]) Close() error {
	if !r.markClosed() {
		return ErrClosed
	}
	r.ch.leave()
	return nil
}

// Stats returns the node reclamation counters of the underlying queue.
// Remains valid after the queue is freed.
func (r *Receiver[T]) Stats() Stats {
	return r.ch.q.Stats()
}
