// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "unsafe"

// Options configures queue creation.
type Options struct {
	// Arena growth: chunk 0 holds chunkSize nodes, each further chunk
	// doubles (rounds up to next power of 2)
	chunkSize int

	// Nodes created up front and parked on the free list
	prealloc int
}

// Builder creates queues with fluent configuration.
//
// The queue is unbounded whatever the options; they only shape how node
// memory is obtained.
//
// Example:
//
//	// Queue with default options
//	q := msq.Build[Event](msq.New())
//
//	// Warm free list for a known steady-state depth
//	q := msq.Build[Event](msq.New().Prealloc(4096))
//
//	// Producer/consumer handles over one queue
//	tx, rx := msq.BuildChannel[*Request](msq.New().ChunkSize(1024))
type Builder struct {
	opts Options
}

// New creates a queue builder with default options.
//
// Example:
//
//	b := msq.New()
//	q := msq.Build[int](b.ChunkSize(256))
func New() *Builder {
	return &Builder{opts: Options{chunkSize: defaultChunkSize}}
}

// ChunkSize sets the node count of the first arena chunk.
//
// Each later chunk doubles the previous one. Rounds up to the next power
// of 2. Panics if n < 2.
func (b *Builder) ChunkSize(n int) *Builder {
	if n < 2 {
		panic("msq: chunk size must be >= 2")
	}
	b.opts.chunkSize = n
	return b
}

// Prealloc creates n nodes up front and parks them on the free list, so the
// first n pushes (minus the sentinel) never grow the arena.
// Panics if n < 0.
func (b *Builder) Prealloc(n int) *Builder {
	if n < 0 {
		panic("msq: prealloc must be >= 0")
	}
	b.opts.prealloc = n
	return b
}

// Build creates an MSQueue[T] with the configured options.
func Build[T any](b *Builder) *MSQueue[T] {
	return newMSQueue[T](b.opts.chunkSize, b.opts.prealloc)
}

// BuildChannel creates a Sender/Receiver pair over a new queue with the
// configured options.
func BuildChannel[T any](b *Builder) (*Sender[T], *Receiver[T]) {
	return newChannel(Build[T](b))
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// ptrSize is the size of a pointer in bytes.
const ptrSize = int(unsafe.Sizeof(uintptr(0)))

// pad is cache line padding to prevent false sharing.
type pad [64]byte

// padPtr is padding to fill cache line after pointer-sized field.
type padPtr [64 - ptrSize]byte
