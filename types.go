// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

// Queue is the combined producer-consumer interface for an unbounded FIFO
// queue.
//
// Queue provides non-blocking Enqueue and Dequeue operations. Enqueue always
// succeeds while the queue is open. Dequeue returns ErrWouldBlock when no
// value is available and ErrClosed once a closed queue is drained.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q := msq.NewMSQueue[int]()
//
//	// Enqueue
//	val := 42
//	if err := q.Enqueue(&val); err != nil {
//	    // Queue closed
//	}
//
//	// Dequeue
//	elem, err := q.Dequeue()
//	if err == nil {
//	    fmt.Println(elem)
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]
	IsEmpty() bool
}

// Producer is the interface for enqueueing elements.
//
// The element is passed by pointer to avoid copying large structs. The queue
// stores a copy of the pointed-to value, so the original can be modified
// after Enqueue returns.
type Producer[T any] interface {
	// Enqueue appends an element at the tail of the queue (non-blocking).
	// The element is copied into a freshly allocated node.
	// Returns nil on success, ErrClosed if the queue was closed.
	//
	// Safe for any number of concurrent producers.
	Enqueue(elem *T) error
}

// Consumer is the interface for dequeueing elements.
//
// The element is returned by value (copied from the queue node). The node's
// slot is cleared so referenced objects can be garbage collected.
type Consumer[T any] interface {
	// Dequeue removes and returns the element at the head of the queue
	// (non-blocking).
	// Returns (zero-value, ErrWouldBlock) if the queue is currently empty.
	// Returns (zero-value, ErrClosed) once a closed queue has been drained.
	//
	// Safe for any number of concurrent consumers.
	Dequeue() (T, error)
}

// Closer marks the end of a stream.
//
// [MSQueue] implements Closer by linking a close marker behind the last
// value, so Close is ordered with respect to every Enqueue.
type Closer interface {
	Close() error
}
