package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"snapdiff/internal/builder"
	"snapdiff/internal/compare"
	"snapdiff/internal/format"
	"snapdiff/internal/hash"
)

type Config struct {
	Exclude        []string      `yaml:"exclude"`
	Hash           string        `yaml:"hash"`
	Collect        Collect       `yaml:"collect"`
	TimeWindow     time.Duration `yaml:"time_window"`
	Workers        int           `yaml:"workers"`
	IgnoreMissing  bool          `yaml:"ignore_missing"`
	SkipUnreadable bool          `yaml:"skip_unreadable"`
	KeepRemoved    bool          `yaml:"keep_removed"`
	Format         string        `yaml:"format"`
	Compare        Compare       `yaml:"compare"`
}

// Collect selects the attributes recorded for each entry.
type Collect struct {
	Size     bool `yaml:"size"`
	Created  bool `yaml:"created"`
	Modified bool `yaml:"modified"`
}

// Compare holds the comparer settings.
type Compare struct {
	SizeAndTimeMatch      bool          `yaml:"size_and_time_match"`
	UnknownAssumeModified bool          `yaml:"unknown_assume_modified"`
	TimeWindow            time.Duration `yaml:"time_window"`
}

func DefaultConfig() *Config {
	return &Config{
		Exclude: []string{
			".git/",
			".svn/",
			"node_modules/",
			"vendor/",
			"__pycache__/",
			"*.o",
			"*.so",
			"*.exe",
			"bin/",
			"dist/",
			"*.tmp",
			"*.swp",
			"*.log",
			".DS_Store",
			"Thumbs.db",
		},
		Hash:    hash.SHA256.String(),
		Collect: Collect{Size: true, Created: true, Modified: true},
		Workers: runtime.NumCPU() * 2,
		Format:  "text",
		Compare: Compare{
			SizeAndTimeMatch:      true,
			UnknownAssumeModified: true,
		},
	}
}

// LoadConfig reads path over the defaults. A missing file yields the
// defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	// an explicit "exclude:" with no items clears the defaults
	if cfg.Exclude == nil {
		cfg.Exclude = []string{}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that YAML decoding cannot.
func (c *Config) Validate() error {
	if _, err := hash.ParseAlgorithm(c.Hash); err != nil {
		return err
	}
	if _, err := format.ByName(c.Format); err != nil {
		return err
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.TimeWindow < 0 || c.Compare.TimeWindow < 0 {
		return fmt.Errorf("time windows must not be negative")
	}
	return nil
}

// BuilderOptions converts the configuration for a build over roots.
func (c *Config) BuilderOptions(roots []string) (builder.Options, error) {
	alg, err := hash.ParseAlgorithm(c.Hash)
	if err != nil {
		return builder.Options{}, err
	}

	opts := builder.DefaultOptions()
	opts.Roots = roots
	opts.CollectSize = c.Collect.Size
	opts.CollectCreated = c.Collect.Created
	opts.CollectModified = c.Collect.Modified
	opts.HashAlgorithm = alg
	opts.TimeWindow = c.TimeWindow
	opts.KeepRemoved = c.KeepRemoved
	opts.IgnoreMissing = c.IgnoreMissing
	opts.SkipUnreadable = c.SkipUnreadable
	if c.Workers > 0 {
		opts.Workers = c.Workers
	}
	return opts, nil
}

// CompareOptions converts the comparer section.
func (c *Config) CompareOptions() compare.Options {
	return compare.Options{
		SizeAndTimeMatch:      c.Compare.SizeAndTimeMatch,
		UnknownAssumeModified: c.Compare.UnknownAssumeModified,
		TimeWindow:            c.Compare.TimeWindow,
	}
}
