// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"log/slog"

	"code.hybscloud.com/msq/internal/workload"
	"github.com/spf13/cobra"
)

type flags struct {
	config   string
	logLevel string
	json     bool
	cfg      workload.Config
}

func newRootCmd() *cobra.Command {
	f := &flags{cfg: workload.DefaultConfig()}

	cmd := &cobra.Command{
		Use:   "msqstress",
		Short: "Stress an unbounded lock-free queue",
		Long: `Stress an unbounded lock-free queue.

Producer i pushes the values 1..N, (i+1)*R times, through its own Sender.
Consumers drain until every Sender is closed. The run fails if any value is
lost, duplicated, seen out of per-producer order, or if any node is left
unreclaimed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return f.run(cmd)
		},
	}

	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "", "YAML scenario file (flags override its values)")
	fl.StringVar(&f.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fl.BoolVar(&f.json, "json", false, "Log in JSON")
	fl.IntVarP(&f.cfg.Producers, "producers", "p", f.cfg.Producers, "Producer goroutines")
	fl.IntVarP(&f.cfg.Consumers, "consumers", "n", f.cfg.Consumers, "Consumer goroutines")
	fl.IntVar(&f.cfg.Values, "values", f.cfg.Values, "Distinct values per round (1..N)")
	fl.IntVar(&f.cfg.Repeat, "repeat", f.cfg.Repeat, "Rounds of producer 0; producer i runs (i+1)x")
	fl.IntVar(&f.cfg.ChunkSize, "chunk-size", f.cfg.ChunkSize, "Nodes in the first arena chunk")
	fl.IntVar(&f.cfg.Prealloc, "prealloc", f.cfg.Prealloc, "Nodes created up front")
	fl.DurationVar(&f.cfg.Timeout, "timeout", f.cfg.Timeout, "Abort the run after this long")
	fl.DurationVar(&f.cfg.Progress, "progress", f.cfg.Progress, "Progress log interval (0 disables)")

	return cmd
}

func (f *flags) run(cmd *cobra.Command) error {
	logger, err := newLogger(cmd.ErrOrStderr(), f.logLevel, f.json)
	if err != nil {
		return err
	}

	cfg, err := f.resolve(cmd)
	if err != nil {
		return err
	}

	rep, err := workload.Run(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	if err = rep.Verify(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Read %d/%d in %v (nodes=%d allocs=%d frees=%d)\n",
		rep.Popped, rep.Pushed, rep.Elapsed, rep.Stats.Nodes, rep.Stats.Allocs, rep.Stats.Frees)
	return nil
}

// resolve layers explicitly set flags over the scenario file, if any.
func (f *flags) resolve(cmd *cobra.Command) (workload.Config, error) {
	if f.config == "" {
		return f.cfg, f.cfg.Validate()
	}
	cfg, err := workload.LoadConfig(f.config)
	if err != nil {
		return cfg, err
	}

	fl := cmd.Flags()
	override := []struct {
		name string
		set  func()
	}{
		{"producers", func() { cfg.Producers = f.cfg.Producers }},
		{"consumers", func() { cfg.Consumers = f.cfg.Consumers }},
		{"values", func() { cfg.Values = f.cfg.Values }},
		{"repeat", func() { cfg.Repeat = f.cfg.Repeat }},
		{"chunk-size", func() { cfg.ChunkSize = f.cfg.ChunkSize }},
		{"prealloc", func() { cfg.Prealloc = f.cfg.Prealloc }},
		{"timeout", func() { cfg.Timeout = f.cfg.Timeout }},
		{"progress", func() { cfg.Progress = f.cfg.Progress }},
	}
	for _, o := range override {
		if fl.Changed(o.name) {
			o.set()
		}
	}
	return cfg, cfg.Validate()
}

func newLogger(w io.Writer, level string, json bool) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
