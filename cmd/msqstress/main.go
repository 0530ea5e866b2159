// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command msqstress runs a fan-in workload against an msq channel and
// verifies that every pushed value was dequeued exactly once, in
// per-producer order, with every node reclaimed.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
