// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"math/bits"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

const (
	// maxIndex bounds arena indices so they fit the low half of a
	// tagged free-list word.
	maxIndex = 1<<32 - 1

	// maxChunks covers maxIndex for any power-of-2 base chunk size.
	maxChunks = 33

	defaultChunkSize = 64
)

// chunk is a contiguous block of nodes. Chunk k holds base<<k nodes.
type chunk[T any] struct {
	nodes []node[T]
}

// arena is a grow-only, type-stable node store.
//
// Nodes are never returned to the runtime while the queue is alive. A
// thread holding a stale index may therefore always dereference it; the
// reference count, not the memory, decides whether the node is still its.
type arena[T any] struct {
	_      pad
	last   atomix.Uint64 // Highest index handed out
	_      pad
	shift  uint   // log2(base)
	base   uint64 // Nodes in chunk 0
	chunks [maxChunks]atomic.Pointer[chunk[T]]
}

func (a *arena[T]) init(chunkSize int) {
	n := uint64(roundToPow2(chunkSize))
	a.base = n
	a.shift = uint(bits.TrailingZeros64(n))
}

// locate maps a 1-based index to its chunk and offset.
func (a *arena[T]) locate(i uint64) (k int, off uint64) {
	p := i - 1 + a.base
	k = bits.Len64(p) - 1 - int(a.shift)
	return k, p - a.base<<uint(k)
}

// grow hands out a never-used node, installing its chunk on first touch.
// Panics when the index space is exhausted.
func (a *arena[T]) grow() (uint64, *node[T]) {
	i := a.last.AddAcqRel(1)
	if i > maxIndex {
		panic("msq: node arena exhausted")
	}
	k, off := a.locate(i)
	c := a.chunks[k].Load()
	if c == nil {
		c = &chunk[T]{nodes: make([]node[T], a.base<<uint(k))}
		if !a.chunks[k].CompareAndSwap(nil, c) {
			c = a.chunks[k].Load()
		}
	}
	return i, &c.nodes[off]
}

// at returns the node for a published index.
func (a *arena[T]) at(i uint64) *node[T] {
	k, off := a.locate(i)
	return &a.chunks[k].Load().nodes[off]
}

// size returns the number of nodes handed out by grow.
func (a *arena[T]) size() uint64 {
	return min(a.last.LoadAcquire(), maxIndex)
}

// drop releases every chunk to the garbage collector.
func (a *arena[T]) drop() {
	for k := range a.chunks {
		a.chunks[k].Store(nil)
	}
}
