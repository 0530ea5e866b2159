// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workload drives an msq channel with concurrent producers and
// consumers and checks what came out against what went in.
package workload

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/msq"
)

// ErrVerify is wrapped by every Report.Verify failure.
var ErrVerify = errors.New("workload: verification failed")

// item is one pushed value tagged with its origin.
type item struct {
	producer int
	seq      int
	value    int
}

// Report summarizes one Run.
type Report struct {
	Pushed          int64
	Popped          int64
	Counts          []int64 // Counts[v-1]: times value v was dequeued
	Expected        []int64 // Expected[v-1]: times value v was scheduled
	OrderViolations int64   // Same-producer values seen out of push order
	Stats           msq.Stats
	Elapsed         time.Duration
}

// Verify reports every mismatch between what was pushed and what was
// dequeued, and any node that was never reclaimed.
func (r Report) Verify() error {
	var errs []error
	var want int64
	for _, n := range r.Expected {
		want += n
	}
	if r.Pushed != want {
		errs = append(errs, fmt.Errorf("pushed %d, want %d", r.Pushed, want))
	}
	if r.Popped != r.Pushed {
		errs = append(errs, fmt.Errorf("popped %d, pushed %d", r.Popped, r.Pushed))
	}
	for v := range r.Expected {
		if v < len(r.Counts) && r.Counts[v] != r.Expected[v] {
			errs = append(errs, fmt.Errorf("value %d: got %d, want %d", v+1, r.Counts[v], r.Expected[v]))
		}
	}
	if r.OrderViolations != 0 {
		errs = append(errs, fmt.Errorf("%d per-producer order violations", r.OrderViolations))
	}
	if live := r.Stats.Live(); live != 0 {
		errs = append(errs, fmt.Errorf("%d nodes not reclaimed", live))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrVerify, errors.Join(errs...))
}

// Run executes the workload described by cfg and returns its report.
//
// Every producer owns a cloned Sender and closes it when done; consumers
// drain their cloned Receiver until ErrClosed. The report's Stats are taken
// after the last handle is released.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	tx, rx := msq.BuildChannel[item](msq.New().ChunkSize(cfg.ChunkSize).Prealloc(cfg.Prealloc))

	senders, receivers, err := clone(tx, rx, cfg.Producers, cfg.Consumers)
	if err != nil {
		tx.Close()
		rx.Close()
		return Report{Stats: rx.Stats()}, err
	}
	// Only the clones keep the queue open from here on
	tx.Close()

	var (
		pushed, popped, violations atomix.Int64
		counts                     = make([]atomix.Int64, cfg.Values)
		wg                         sync.WaitGroup
	)
	start := time.Now()
	logger.Info("workload started",
		"producers", cfg.Producers, "consumers", cfg.Consumers, "total", cfg.Total())

	for i, s := range senders {
		wg.Add(1)
		go func(id int, s *msq.Sender[item]) {
			defer wg.Done()
			defer s.Close()
			seq := 0
			for range (id + 1) * cfg.Repeat {
				for v := 1; v <= cfg.Values; v++ {
					if ctx.Err() != nil {
						return
					}
					it := item{producer: id, seq: seq, value: v}
					if err := s.Enqueue(&it); err != nil {
						logger.Error("enqueue failed", "producer", id, "err", err)
						return
					}
					seq++
					pushed.Add(1)
				}
			}
			logger.Debug("producer done", "producer", id, "pushed", seq)
		}(i, s)
	}

	for i, r := range receivers {
		wg.Add(1)
		go func(id int, r *msq.Receiver[item]) {
			defer wg.Done()
			defer r.Close()
			last := make([]int, cfg.Producers)
			for p := range last {
				last[p] = -1
			}
			backoff := iox.Backoff{}
			for {
				it, err := r.Dequeue()
				if err == nil {
					backoff.Reset()
					if it.seq <= last[it.producer] {
						violations.Add(1)
					}
					last[it.producer] = it.seq
					counts[it.value-1].Add(1)
					popped.Add(1)
					continue
				}
				if !msq.IsWouldBlock(err) {
					logger.Debug("consumer done", "consumer", id, "reason", err)
					return
				}
				if ctx.Err() != nil {
					return
				}
				backoff.Wait()
			}
		}(i, r)
	}

	done := make(chan struct{})
	if cfg.Progress > 0 {
		go reportProgress(done, cfg.Progress, logger, &pushed, &popped)
	}
	wg.Wait()
	close(done)

	// Last handle: frees the queue
	rx.Close()

	rep := Report{
		Pushed:          pushed.Load(),
		Popped:          popped.Load(),
		Counts:          make([]int64, cfg.Values),
		Expected:        cfg.Expected(),
		OrderViolations: violations.Load(),
		Stats:           rx.Stats(),
		Elapsed:         time.Since(start),
	}
	for v := range counts {
		rep.Counts[v] = counts[v].Load()
	}
	logger.Info("workload finished",
		"pushed", rep.Pushed, "popped", rep.Popped, "nodes", rep.Stats.Nodes,
		"live", rep.Stats.Live(), "elapsed", rep.Elapsed)

	if err := ctx.Err(); err != nil {
		return rep, fmt.Errorf("workload: %w", err)
	}
	return rep, nil
}

// clone makes one Sender per producer and one Receiver per consumer. On
// failure every clone made so far is closed again.
func clone[T any](tx *msq.Sender[T], rx *msq.Receiver[T], producers, consumers int) ([]*msq.Sender[T], []*msq.Receiver[T], error) {
	senders := make([]*msq.Sender[T], 0, producers)
	receivers := make([]*msq.Receiver[T], 0, consumers)
	release := func() {
		for _, s := range senders {
			s.Close()
		}
		for _, r := range receivers {
			r.Close()
		}
	}
	for range producers {
		s, err := tx.Clone()
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("workload: clone sender: %w", err)
		}
		senders = append(senders, s)
	}
	for range consumers {
		r, err := rx.Clone()
		if err != nil {
			release()
			return nil, nil, fmt.Errorf("workload: clone receiver: %w", err)
		}
		receivers = append(receivers, r)
	}
	return senders, receivers, nil
}

func reportProgress(done <-chan struct{}, every time.Duration, logger *slog.Logger, pushed, popped *atomix.Int64) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			logger.Info("progress", "pushed", pushed.Load(), "popped", popped.Load())
		}
	}
}
