// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	refOne   int64 = 2 // One reference
	refClaim int64 = 1 // Claimed by the reclaimer, node is on the free list
)

// Stats reports node reclamation counters.
//
// Every node handed to a push (or to Close) counts as one Alloc. Every
// reclamation counts as one Free. Once the last handle is released (or
// [MSQueue.Free] returns) Live is zero: every allocated node was freed
// exactly once.
type Stats struct {
	Nodes  uint64 // Nodes ever created in the arena
	Allocs uint64 // Node allocations (fresh or recycled)
	Frees  uint64 // Node reclamations
}

// Live returns the number of allocated nodes not yet reclaimed.
func (s Stats) Live() int64 {
	return int64(s.Allocs) - int64(s.Frees)
}

// reclaimer owns node memory and decides when a node may be reused.
//
// Reference counting with a claim bit, after Valois and the correction by
// Michael and Scott:
//
//   - safeRead brackets every dereference of a node loaded from a shared
//     link: increment, then confirm the link still names the node.
//   - release decrements; the thread that drops the count to zero and
//     then wins CAS(0, refClaim) reclaims. Stale increments landing
//     in between make the CAS fail and hand reclamation to the last of them.
//   - alloc pops the free list and adds refOne-refClaim in one step, so
//     stale increments that raced with the pop are preserved.
type reclaimer[T any] struct {
	arena arena[T]
	_     pad
	top   atomix.Uint64 // Free-list top: tag<<32 | index
	_     pad
	allocs atomix.Uint64
	frees  atomix.Uint64
}

func (r *reclaimer[T]) init(chunkSize, prealloc int) {
	r.arena.init(chunkSize)
	for range prealloc {
		i, n := r.arena.grow()
		n.refs.StoreRelaxed(refClaim)
		r.push(i, n)
	}
}

// alloc returns a node holding one reference for the caller.
// The node's next link is nil and its value is the zero value.
func (r *reclaimer[T]) alloc(kind nodeKind) (uint64, *node[T]) {
	i, n := r.pop()
	if i != nilIndex {
		n.refs.AddAcqRel(refOne - refClaim)
	} else {
		i, n = r.arena.grow()
		n.refs.StoreRelease(refOne)
	}
	n.kind = kind
	r.allocs.AddAcqRel(1)
	return i, n
}

// retain adds a reference to a node the caller already holds.
func (r *reclaimer[T]) retain(i uint64) {
	if i != nilIndex {
		r.arena.at(i).refs.AddAcqRel(refOne)
	}
}

// safeRead loads link and returns its node index with one reference held,
// or nilIndex.
func (r *reclaimer[T]) safeRead(link *atomix.Uint64) uint64 {
	for {
		i := link.LoadAcquire()
		if i == nilIndex {
			return nilIndex
		}
		r.arena.at(i).refs.AddAcqRel(refOne)
		if link.LoadAcquire() == i {
			return i
		}
		r.release(i)
	}
}

// release drops one reference. The last reference reclaims the node, which
// in turn drops the reference its next link held on the successor.
func (r *reclaimer[T]) release(i uint64) {
	for i != nilIndex {
		n := r.arena.at(i)
		if n.refs.AddAcqRel(-refOne) != 0 {
			return
		}
		if !n.refs.CompareAndSwapAcqRel(0, refClaim) {
			return
		}
		next := n.next.LoadAcquire()
		n.next.StoreRelease(nilIndex)
		var zero T
		n.value = zero
		r.push(i, n)
		r.frees.AddAcqRel(1)
		i = next
	}
}

// casLink swaps link from old to next, moving the link's reference.
// The caller must hold a reference to next.
func (r *reclaimer[T]) casLink(link *atomix.Uint64, old, next uint64) bool {
	r.retain(next)
	if link.CompareAndSwapAcqRel(old, next) {
		r.release(old)
		return true
	}
	r.release(next)
	return false
}

// push adds a claimed node to the free list.
func (r *reclaimer[T]) push(i uint64, n *node[T]) {
	sw := spin.Wait{}
	for {
		top := r.top.LoadAcquire()
		n.free.StoreRelaxed(top & maxIndex)
		if r.top.CompareAndSwapAcqRel(top, (top>>32+1)<<32|i) {
			return
		}
		sw.Once()
	}
}

// pop removes a node from the free list. The tag in the top word makes a
// pop fail if the top was popped and pushed again since it was loaded.
// The tag is 32 bits and advances once per push and once per pop, so it
// wraps after 2^32 free-list operations: a pop stalled between its load
// and its CAS for exactly a multiple of that many operations, with the
// same index on top again, is the one case it cannot detect.
func (r *reclaimer[T]) pop() (uint64, *node[T]) {
	sw := spin.Wait{}
	for {
		top := r.top.LoadAcquire()
		i := top & maxIndex
		if i == nilIndex {
			return nilIndex, nil
		}
		n := r.arena.at(i)
		next := n.free.LoadAcquire()
		if r.top.CompareAndSwapAcqRel(top, (top>>32+1)<<32|next) {
			return i, n
		}
		sw.Once()
	}
}

// stats snapshots the counters.
func (r *reclaimer[T]) stats() Stats {
	return Stats{
		Nodes:  r.arena.size(),
		Allocs: r.allocs.LoadAcquire(),
		Frees:  r.frees.LoadAcquire(),
	}
}
