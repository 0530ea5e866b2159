// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workload

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("workload: invalid config")

// Config describes a fan-in workload.
//
// Producer i pushes the sequence 1..Values, (i+1)*Repeat times.
type Config struct {
	Producers int           `yaml:"producers"`
	Consumers int           `yaml:"consumers"`
	Values    int           `yaml:"values"`
	Repeat    int           `yaml:"repeat"`
	ChunkSize int           `yaml:"chunk_size"`
	Prealloc  int           `yaml:"prealloc"`
	Timeout   time.Duration `yaml:"timeout"`
	Progress  time.Duration `yaml:"progress"` // 0 disables progress logs
}

// DefaultConfig returns the reference scenario: 3 producers, 1 consumer,
// values 1..16 repeated 10, 20 and 30 times (960 values).
func DefaultConfig() Config {
	return Config{
		Producers: 3,
		Consumers: 1,
		Values:    16,
		Repeat:    10,
		ChunkSize: 64,
		Timeout:   30 * time.Second,
		Progress:  time.Second,
	}
}

// LoadConfig reads a YAML scenario file on top of DefaultConfig.
// Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("workload: open config: %w", err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f, yaml.Strict())
	if err = dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("workload: parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks every field.
func (c Config) Validate() error {
	switch {
	case c.Producers < 1:
		return fmt.Errorf("%w: producers must be >= 1, got %d", ErrInvalidConfig, c.Producers)
	case c.Consumers < 1:
		return fmt.Errorf("%w: consumers must be >= 1, got %d", ErrInvalidConfig, c.Consumers)
	case c.Values < 1:
		return fmt.Errorf("%w: values must be >= 1, got %d", ErrInvalidConfig, c.Values)
	case c.Repeat < 1:
		return fmt.Errorf("%w: repeat must be >= 1, got %d", ErrInvalidConfig, c.Repeat)
	case c.ChunkSize < 2:
		return fmt.Errorf("%w: chunk_size must be >= 2, got %d", ErrInvalidConfig, c.ChunkSize)
	case c.Prealloc < 0:
		return fmt.Errorf("%w: prealloc must be >= 0, got %d", ErrInvalidConfig, c.Prealloc)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfig, c.Timeout)
	case c.Progress < 0:
		return fmt.Errorf("%w: progress must not be negative, got %v", ErrInvalidConfig, c.Progress)
	}
	return nil
}

// Expected returns how many times each value 1..Values is pushed in total.
func (c Config) Expected() []int64 {
	var rounds int64
	for i := range c.Producers {
		rounds += int64(i+1) * int64(c.Repeat)
	}
	exp := make([]int64, c.Values)
	for v := range exp {
		exp[v] = rounds
	}
	return exp
}

// Total returns the number of values pushed by all producers.
func (c Config) Total() int64 {
	var total int64
	for _, n := range c.Expected() {
		total += n
	}
	return total
}
