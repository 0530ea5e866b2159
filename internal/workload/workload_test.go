// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workload_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"code.hybscloud.com/msq"
	"code.hybscloud.com/msq/internal/workload"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

// =============================================================================
// Config
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := workload.DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.Equal(t, int64(960), cfg.Total())

	exp := cfg.Expected()
	require.Len(t, exp, 16)
	for _, n := range exp {
		require.Equal(t, int64(60), n)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(*workload.Config)
	}{
		{"producers", func(c *workload.Config) { c.Producers = 0 }},
		{"consumers", func(c *workload.Config) { c.Consumers = 0 }},
		{"values", func(c *workload.Config) { c.Values = 0 }},
		{"repeat", func(c *workload.Config) { c.Repeat = -1 }},
		{"chunk_size", func(c *workload.Config) { c.ChunkSize = 1 }},
		{"prealloc", func(c *workload.Config) { c.Prealloc = -1 }},
		{"timeout", func(c *workload.Config) { c.Timeout = 0 }},
		{"progress", func(c *workload.Config) { c.Progress = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := workload.DefaultConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			require.ErrorIs(t, err, workload.ErrInvalidConfig)
			require.Contains(t, err.Error(), tt.name)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
producers: 4
consumers: 2
repeat: 5
chunk_size: 8
timeout: 10s
`)
	cfg, err := workload.LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 4, cfg.Producers)
	require.Equal(t, 2, cfg.Consumers)
	require.Equal(t, 5, cfg.Repeat)
	require.Equal(t, 8, cfg.ChunkSize)
	require.Equal(t, 10*time.Second, cfg.Timeout)
	// Unset keys keep their defaults
	require.Equal(t, 16, cfg.Values)
	require.Equal(t, time.Second, cfg.Progress)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		_, err := workload.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})
	t.Run("unknown key", func(t *testing.T) {
		_, err := workload.LoadConfig(writeConfig(t, "producers: 2\nwriters: 3\n"))
		require.Error(t, err)
	})
	t.Run("invalid value", func(t *testing.T) {
		_, err := workload.LoadConfig(writeConfig(t, "consumers: 0\n"))
		require.ErrorIs(t, err, workload.ErrInvalidConfig)
	})
}

// =============================================================================
// Run
// =============================================================================

func TestRunDefault(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: concurrent workload")
	}
	cfg := workload.DefaultConfig()
	cfg.Progress = 0

	rep, err := workload.Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, rep.Verify())
	require.Equal(t, int64(960), rep.Popped)
	for v, n := range rep.Counts {
		require.Equalf(t, int64(60), n, "value %d", v+1)
	}
	require.Zero(t, rep.Stats.Live())
	require.Equal(t, rep.Stats.Allocs, rep.Stats.Frees)
}

func TestRunMultiConsumer(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: concurrent workload")
	}
	cfg := workload.Config{
		Producers: 4,
		Consumers: 4,
		Values:    32,
		Repeat:    20,
		ChunkSize: 2,
		Prealloc:  16,
		Timeout:   30 * time.Second,
		Progress:  time.Millisecond,
	}

	rep, err := workload.Run(context.Background(), cfg, quietLogger())
	require.NoError(t, err)
	require.NoError(t, rep.Verify())
	require.Equal(t, cfg.Total(), rep.Popped)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := workload.DefaultConfig()
	cfg.Producers = 0
	_, err := workload.Run(context.Background(), cfg, nil)
	require.ErrorIs(t, err, workload.ErrInvalidConfig)
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := workload.DefaultConfig()
	cfg.Progress = 0
	rep, err := workload.Run(ctx, cfg, quietLogger())
	require.ErrorIs(t, err, context.Canceled)
	// Whatever got through was still reclaimed
	require.Zero(t, rep.Stats.Live())
}

// =============================================================================
// Verify
// =============================================================================

func TestReportVerify(t *testing.T) {
	good := workload.Report{
		Pushed:   4,
		Popped:   4,
		Counts:   []int64{2, 2},
		Expected: []int64{2, 2},
	}
	require.NoError(t, good.Verify())

	tests := []struct {
		name string
		edit func(*workload.Report)
		want string
	}{
		{"lost", func(r *workload.Report) { r.Popped = 3; r.Counts[1] = 1 }, "popped 3"},
		{"duplicated", func(r *workload.Report) { r.Popped = 5; r.Counts[0] = 3 }, "value 1"},
		{"reordered", func(r *workload.Report) { r.OrderViolations = 1 }, "order violations"},
		{"leaked", func(r *workload.Report) { r.Stats = msq.Stats{Nodes: 3, Allocs: 3, Frees: 1} }, "2 nodes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := good
			r.Counts = append([]int64(nil), good.Counts...)
			tt.edit(&r)
			err := r.Verify()
			require.ErrorIs(t, err, workload.ErrVerify)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}
