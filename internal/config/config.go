// Package config holds ambient service tuning for the sgmcp process: concurrency
// bounds, cache capacity, log verbosity, and timeouts. This is deliberately separate
// from the domain-level rule directory manifest owned by internal/rulestore — this
// package never names a rule file or pattern.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pelletier/go-toml/v2"
)

// Config is the service's ambient tuning, loaded from defaults and optionally
// overridden by a .sgmcp.toml file.
type Config struct {
	Service     Service     `toml:"service"`
	Limits      Limits      `toml:"limits"`
	Cache       Cache       `toml:"cache"`
	Logging     Logging     `toml:"logging"`
	RuleStore   RuleStore   `toml:"rulestore"`
}

// Service controls the root the FileWalker confines itself to and default concurrency.
type Service struct {
	RootDir     string `toml:"root_dir"`
	Workers     int    `toml:"workers"` // 0 = auto-detect (NumCPU)
	TimeoutSec  int    `toml:"timeout_sec"`
}

// Limits bounds per-file and per-request work, enforced by internal/walker and
// internal/shaper respectively.
type Limits struct {
	MaxFileSizeBytes int64 `toml:"max_file_size_bytes"`
	MaxResults       int   `toml:"max_results"`
	MaxContextLines  int   `toml:"max_context_lines"`
}

// Cache tunes the PatternCompiler's LRU.
type Cache struct {
	PatternCapacity int `toml:"pattern_capacity"`
}

// Logging controls the diagnostic file logger (internal/logging). Stdout/stderr are
// never used for diagnostics: they carry the MCP stdio transport.
type Logging struct {
	Verbose bool   `toml:"verbose"`
	Dir     string `toml:"dir"` // override for the temp/home-dir search, optional
}

// RuleStore controls the optional live-reload of configured rule directories.
type RuleStore struct {
	WatchEnabled bool `toml:"watch_enabled"`
}

// Default returns the baseline config used when no .sgmcp.toml is present.
func Default(rootDir string) *Config {
	return &Config{
		Service: Service{
			RootDir:    rootDir,
			Workers:    0,
			TimeoutSec: 120,
		},
		Limits: Limits{
			MaxFileSizeBytes: 50 * 1024 * 1024,
			MaxResults:       1000,
			MaxContextLines:  100,
		},
		Cache: Cache{
			PatternCapacity: 256,
		},
		Logging: Logging{
			Verbose: false,
		},
		RuleStore: RuleStore{
			WatchEnabled: false,
		},
	}
}

// Load builds a Config for rootDir, overlaying an optional .sgmcp.toml found directly
// under rootDir. A missing overlay file is not an error; a malformed one is.
func Load(rootDir string) (*Config, error) {
	cfg := Default(rootDir)

	overlayPath := filepath.Join(rootDir, ".sgmcp.toml")
	data, err := os.ReadFile(overlayPath)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", overlayPath, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", overlayPath, err)
	}
	cfg.Service.RootDir = rootDir // the overlay never relocates the root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects out-of-range tuning values before the server starts.
func (c *Config) Validate() error {
	if c.Limits.MaxFileSizeBytes <= 0 {
		return fmt.Errorf("limits.max_file_size_bytes must be positive, got %d", c.Limits.MaxFileSizeBytes)
	}
	if c.Limits.MaxResults <= 0 {
		return fmt.Errorf("limits.max_results must be positive, got %d", c.Limits.MaxResults)
	}
	if c.Cache.PatternCapacity <= 0 {
		return fmt.Errorf("cache.pattern_capacity must be positive, got %d", c.Cache.PatternCapacity)
	}
	if c.Service.Workers < 0 {
		return fmt.Errorf("service.workers must be >= 0, got %d", c.Service.Workers)
	}
	return nil
}

// WorkerCount resolves the configured worker count, defaulting to NumCPU when 0.
func (c *Config) WorkerCount() int {
	if c.Service.Workers > 0 {
		return c.Service.Workers
	}
	return runtime.NumCPU()
}
