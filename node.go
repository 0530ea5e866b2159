// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/atomix"

// nilIndex is the link value of "no node".
const nilIndex = 0

type nodeKind uint8

const (
	kindSentinel nodeKind = iota // Initial head, carries no value
	kindValue                    // Carries a pushed value
	kindClosed                   // Close marker, never gets a successor
)

// node is one queue cell, addressed by its arena index.
//
// The reference count is kept in units of refOne, with the low bit (refClaim)
// set while the node sits on the free list. References are held by links
// (head, tail, a predecessor's next) and by in-flight operations.
type node[T any] struct {
	next  atomix.Uint64 // Successor index, nilIndex while last
	refs  atomix.Int64  // count*refOne | refClaim
	free  atomix.Uint64 // Free-list successor index
	kind  nodeKind
	value T
}
