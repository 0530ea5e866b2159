// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"errors"

	"code.hybscloud.com/iox"
)

// ErrWouldBlock indicates the operation cannot proceed immediately.
//
// Only Dequeue returns it: the queue holds no value right now. The queue is
// unbounded, so Enqueue never reports it.
//
// ErrWouldBlock is a control flow signal, not a failure and not an end of
// stream. A push racing with the Dequeue may land immediately after, so the
// caller should poll again later (with backoff or yield).
//
// This is an alias for [iox.ErrWouldBlock] for ecosystem consistency.
//
// Example:
//
//	backoff := iox.Backoff{}
//	for {
//	    v, err := q.Dequeue()
//	    if err == nil {
//	        backoff.Reset()
//	        process(v)
//	        continue
//	    }
//	    if msq.IsWouldBlock(err) {
//	        backoff.Wait()
//	        continue
//	    }
//	    return err // ErrClosed: drained
//	}
var ErrWouldBlock = iox.ErrWouldBlock

// ErrClosed indicates the queue (or the handle) has been closed.
//
// For Enqueue: the close marker is already linked, the value was not added.
// For Dequeue: every value linked before the close marker has been consumed.
// For handles: the handle itself was closed, or the count it would join
// already dropped to zero.
var ErrClosed = errors.New("msq: queue closed")

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsClosed reports whether err indicates a closed queue or handle.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Returns true for nil, ErrWouldBlock, or ErrMore.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
